package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/viper"
)

func doRequest(method, path string, body io.Reader) (*http.Response, error) {
	url := fmt.Sprintf("%s%s", viper.GetString("host"), path)
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}

	if key := viper.GetString("api-key"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	} else if envKey := os.Getenv("CRUCIBLE_API_KEY"); envKey != "" {
		req.Header.Set("Authorization", "Bearer "+envKey)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return http.DefaultClient.Do(req)
}
