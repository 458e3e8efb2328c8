package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"

	"github.com/crucible-sandbox/crucible/pkg/domain"
	"github.com/crucible-sandbox/crucible/pkg/languages"
	"github.com/crucible-sandbox/crucible/pkg/profiler"
	"github.com/crucible-sandbox/crucible/pkg/telemetry"
)

// profilerDest is where the profiler binary lands inside the container.
const profilerDest = "/tmp/crucible"

// Options tune one Docker-backed sandbox session.
type Options struct {
	// Image overrides the language's default image.
	Image string
	// ProfilerBinary is the host path of the profiler copied into the
	// container. Empty disables profiling support for the session.
	ProfilerBinary string
	// SampleInterval forwarded to the in-container profiler. Zero keeps
	// the profiler's default.
	SampleInterval time.Duration
	// Commit the container back to its image tag on Close.
	Commit  bool
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// DockerSession implements Sandbox on the Docker Engine. One session owns
// one container for its lifetime.
type DockerSession struct {
	cli  *client.Client
	lang languages.Language
	opts Options

	id          domain.ExecutionID
	containerID string
	image       string
}

// NewDockerClient builds an engine client from the environment and verifies
// connectivity.
func NewDockerClient(ctx context.Context) (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to docker: %w", err)
	}
	return cli, nil
}

func NewDockerSession(cli *client.Client, lang languages.Language, opts Options) *DockerSession {
	if opts.Logger == nil {
		opts.Logger = telemetry.NewNopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewNopMetrics()
	}
	img := opts.Image
	if img == "" {
		img = lang.Image
	}
	return &DockerSession{
		cli:   cli,
		lang:  lang,
		opts:  opts,
		id:    domain.ExecutionID(uuid.NewString()),
		image: img,
	}
}

// ID identifies the session; it doubles as the execution ID on results.
func (s *DockerSession) ID() domain.ExecutionID { return s.id }

// Open pulls the image if needed, starts the container and runs the
// language's one-time setup commands.
func (s *DockerSession) Open(ctx context.Context) error {
	if err := s.ensureImage(ctx); err != nil {
		return err
	}

	cfg := &container.Config{
		Image:     s.image,
		Tty:       true,
		OpenStdin: true,
		Labels: map[string]string{
			"crucible.session.id": string(s.id),
		},
	}
	name := fmt.Sprintf("crucible-%s", s.id)
	resp, err := s.cli.ContainerCreate(ctx, cfg, &container.HostConfig{}, nil, nil, name)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	s.containerID = resp.ID

	if err := s.cli.ContainerStart(ctx, s.containerID, container.StartOptions{}); err != nil {
		_ = s.cli.ContainerRemove(ctx, s.containerID, container.RemoveOptions{Force: true})
		s.containerID = ""
		return fmt.Errorf("failed to start container: %w", err)
	}

	s.opts.Logger.Info(ctx, "Session opened", map[string]any{
		"session": s.id, "image": s.image, "container": s.containerID,
	})

	if wd := s.lang.Workdir; wd != "" {
		if out, err := s.exec(ctx, []string{"mkdir", "-p", wd}, ""); err != nil {
			return err
		} else if out.ExitCode != 0 {
			return fmt.Errorf("failed to create workdir %s: %s", wd, out.Stderr)
		}
	}
	for _, cmd := range s.lang.Setup {
		if out, err := s.exec(ctx, cmd, s.lang.Workdir); err != nil {
			return fmt.Errorf("setup command failed: %w", err)
		} else if out.ExitCode != 0 {
			s.opts.Logger.Error(ctx, "Setup command exited non-zero", map[string]any{
				"cmd": cmd, "exit": out.ExitCode, "stderr": out.Stderr,
			})
		}
	}

	if s.opts.ProfilerBinary != "" {
		bin, err := os.ReadFile(s.opts.ProfilerBinary)
		if err != nil {
			return fmt.Errorf("failed to read profiler binary: %w", err)
		}
		if err := s.copyTo(ctx, profilerDest, 0o755, bin); err != nil {
			return err
		}
	}
	return nil
}

// Setup installs the requested libraries with the language's recipe.
func (s *DockerSession) Setup(ctx context.Context, libraries []string) error {
	if s.containerID == "" {
		return fmt.Errorf("session is not open")
	}
	for _, lib := range libraries {
		cmd, err := s.lang.InstallCommand(lib)
		if err != nil {
			return err
		}
		out, err := s.exec(ctx, cmd, s.lang.Workdir)
		if err != nil {
			return fmt.Errorf("failed to install %s: %w", lib, err)
		}
		if out.ExitCode != 0 {
			return fmt.Errorf("failed to install %s: %s", lib, out.Stderr)
		}
	}
	return nil
}

// Run copies the code in and executes the language's compile/run commands,
// with the run step wrapped by the in-container profiler when profile is
// true, then pulls the sample log back out and analyzes it host-side.
func (s *DockerSession) Run(ctx context.Context, code string, profile bool) (*domain.ExecutionResult, error) {
	if s.containerID == "" {
		return nil, fmt.Errorf("session is not open")
	}

	file := path.Join(s.lang.Workdir, s.lang.CodeFileName())
	if err := s.copyTo(ctx, file, 0o644, []byte(code)); err != nil {
		return nil, err
	}

	sampleLog := path.Join(s.lang.Workdir, "mem_usage.log")
	cmds := s.lang.Commands(file)
	if profile && s.opts.ProfilerBinary != "" {
		wrapped := []string{profilerDest, "profile", "--log", sampleLog, "--quiet"}
		if s.opts.SampleInterval > 0 {
			wrapped = append(wrapped, "--interval", s.opts.SampleInterval.String())
		}
		wrapped = append(wrapped, "--")
		cmds[len(cmds)-1] = append(wrapped, cmds[len(cmds)-1]...)
	}

	var out execOutput
	for _, cmd := range cmds {
		var err error
		out, err = s.exec(ctx, cmd, s.lang.Workdir)
		if err != nil {
			return nil, err
		}
	}

	res := &domain.ExecutionResult{
		ID:         s.id,
		Stdout:     out.Stdout,
		Stderr:     out.Stderr,
		ExitStatus: out.ExitCode,
	}

	if profile && s.opts.ProfilerBinary != "" {
		data, err := s.copyFrom(ctx, sampleLog)
		if err != nil {
			// A dead-on-arrival child can leave no log behind; the result
			// stays valid with a degenerate profile.
			s.opts.Logger.Error(ctx, "Failed to retrieve sample log", map[string]any{
				"session": s.id, "error": err.Error(),
			})
			return res, nil
		}
		samples, skipped, perr := profiler.ParseLog(bytes.NewReader(data))
		if perr != nil {
			s.opts.Logger.Error(ctx, "Failed to parse sample log", map[string]any{
				"session": s.id, "error": perr.Error(),
			})
		}
		sum := profiler.Analyze(samples)
		sum.SkippedEntries = skipped
		res.Samples = samples
		res.ApplySummary(sum)

		s.opts.Metrics.SetGauge("crucible_session_peak_memory_kb", float64(sum.PeakMemoryKB),
			telemetry.Label{Key: "lang", Value: s.lang.Name})
	}
	return res, nil
}

// Close removes the container, optionally committing it first.
func (s *DockerSession) Close(ctx context.Context) error {
	if s.containerID == "" {
		return nil
	}
	if s.opts.Commit {
		ref := fmt.Sprintf("crucible-%s:latest", s.lang.Name)
		if _, err := s.cli.ContainerCommit(ctx, s.containerID, container.CommitOptions{Reference: ref}); err != nil {
			s.opts.Logger.Error(ctx, "Failed to commit container", map[string]any{
				"session": s.id, "error": err.Error(),
			})
		}
	}
	err := s.cli.ContainerRemove(ctx, s.containerID, container.RemoveOptions{Force: true})
	s.containerID = ""
	if err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	s.opts.Logger.Info(ctx, "Session closed", map[string]any{"session": s.id})
	return nil
}

type execOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// exec runs one command in the container, demuxing stdout/stderr in full.
func (s *DockerSession) exec(ctx context.Context, cmd []string, workdir string) (execOutput, error) {
	execCfg := container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   workdir,
	}
	created, err := s.cli.ContainerExecCreate(ctx, s.containerID, execCfg)
	if err != nil {
		return execOutput{}, fmt.Errorf("failed to create exec: %w", err)
	}

	resp, err := s.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return execOutput{}, fmt.Errorf("failed to attach exec: %w", err)
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, resp.Reader); err != nil && err != io.EOF {
		return execOutput{}, fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := s.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return execOutput{}, fmt.Errorf("failed to inspect exec: %w", err)
	}

	return execOutput{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}, nil
}

func (s *DockerSession) copyTo(ctx context.Context, dest string, mode int64, content []byte) error {
	buf, err := tarFile(path.Base(dest), mode, content)
	if err != nil {
		return err
	}
	dir := path.Dir(dest)
	if out, err := s.exec(ctx, []string{"mkdir", "-p", dir}, ""); err != nil {
		return err
	} else if out.ExitCode != 0 {
		return fmt.Errorf("failed to create %s: %s", dir, out.Stderr)
	}
	if err := s.cli.CopyToContainer(ctx, s.containerID, dir, buf, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("failed to copy %s into container: %w", dest, err)
	}
	return nil
}

func (s *DockerSession) copyFrom(ctx context.Context, src string) ([]byte, error) {
	rc, _, err := s.cli.CopyFromContainer(ctx, s.containerID, src)
	if err != nil {
		return nil, fmt.Errorf("failed to copy %s from container: %w", src, err)
	}
	defer rc.Close()
	return untarFile(rc, src)
}

func (s *DockerSession) ensureImage(ctx context.Context) error {
	_, _, err := s.cli.ImageInspectWithRaw(ctx, s.image)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to inspect image: %w", err)
	}

	s.opts.Logger.Info(ctx, "Pulling image", map[string]any{"image": s.image})
	reader, err := s.cli.ImagePull(ctx, s.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	// Drain to wait for the pull to complete.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	return nil
}

var _ Sandbox = (*DockerSession)(nil)
