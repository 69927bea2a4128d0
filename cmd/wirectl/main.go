// wirectl inspects remote repositories over the smart wire protocol:
// it performs the service handshake against a configured remote and
// prints the advertised or listed refs to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danmuck/gitwire"
	"github.com/danmuck/gitwire/client"
	"github.com/danmuck/gitwire/internal/observability"
)

func main() {
	var (
		configPath = flag.String("config", "wirectl.toml", "path to wirectl config")
		remoteArg  = flag.String("remote", "", "remote name from config, or a url")
		serviceArg = flag.String("service", "upload-pack", "service to request: upload-pack or receive-pack")
		versionArg = flag.Int("version", 0, "protocol version to request (1 or 2, 0 = config default)")
		commandArg = flag.String("command", "ls-refs", "protocol V2 command to run after the handshake")
		agentArg   = flag.String("agent", "gitwire/wirectl", "agent string sent with protocol V2 commands")
	)
	var caps capabilityFlags
	flag.Var(&caps, "cap", "capability to send with the V2 command, name or name=value (repeatable)")
	flag.Parse()

	logger := observability.InitLogger("wirectl").
		With().Str("run_id", uuid.NewString()).Logger()

	if err := run(logger, *configPath, *remoteArg, *serviceArg, *versionArg, *commandArg, *agentArg, caps); err != nil {
		logger.Error().Err(err).Msg("wirectl failed")
		os.Exit(1)
	}
}

// capabilityFlags collects repeated -cap values in the order given.
type capabilityFlags []client.Capability

func (c *capabilityFlags) String() string {
	parts := make([]string, 0, len(*c))
	for _, capability := range *c {
		if capability.HasValue {
			parts = append(parts, capability.Name+"="+capability.Value)
			continue
		}
		parts = append(parts, capability.Name)
	}
	return strings.Join(parts, ",")
}

func (c *capabilityFlags) Set(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("capability must not be empty")
	}
	if name, value, ok := strings.Cut(raw, "="); ok {
		*c = append(*c, client.CapValue(name, value))
		return nil
	}
	*c = append(*c, client.Cap(raw))
	return nil
}

func run(logger zerolog.Logger, configPath, remoteArg, serviceArg string, versionArg int, command, agent string, caps []client.Capability) error {
	if strings.TrimSpace(remoteArg) == "" {
		return fmt.Errorf("wirectl: -remote is required")
	}
	service, err := parseService(serviceArg)
	if err != nil {
		return err
	}

	cfg, err := loadRuntimeConfig(configPath)
	if err != nil {
		return err
	}
	version := cfg.Version
	switch versionArg {
	case 0:
	case 1:
		version = client.V1
	case 2:
		version = client.V2
	default:
		return fmt.Errorf("wirectl: unsupported -version %d", versionArg)
	}

	remote, named := cfg.resolveRemote(remoteArg)
	logger.Info().
		Str("url", remote.URL).
		Bool("configured_remote", named).
		Str("service", service.String()).
		Str("requested", version.String()).
		Msg("connecting")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	opts := gitwire.Options{
		VirtualHost: remote.VirtualHost,
		HTTPClient:  observability.NewHTTPClient(logger),
	}
	if strings.HasPrefix(remote.URL, "ssh://") {
		opts.SSHConfig, err = cfg.sshClientConfig()
		if err != nil {
			return err
		}
	}

	transport, err := gitwire.Connect(ctx, remote.URL, version, opts)
	if err != nil {
		return err
	}
	defer closeTransport(logger, transport)

	resp, err := transport.Handshake(service)
	if err != nil {
		return err
	}
	logger.Info().
		Str("negotiated", resp.ActualProtocol.String()).
		Int("capabilities", resp.Capabilities.Len()).
		Msg("handshake complete")

	if resp.Refs != nil {
		_, err := io.Copy(os.Stdout, resp.Refs)
		return err
	}
	return invokeV2(logger, transport, command, agent, caps)
}

// invokeV2 runs one protocol V2 command and streams the reply to
// stdout. Sideband progress, if any, goes to the log.
func invokeV2(logger zerolog.Logger, transport client.Transport, command, agent string, caps []client.Capability) error {
	all := append([]client.Capability{client.CapValue("agent", agent)}, caps...)
	r, err := client.Invoke(transport, command, all, nil)
	if err != nil {
		return err
	}
	r.SetProgressHandler(func(isError bool, line []byte) {
		if isError {
			logger.Error().Str("remote", string(line)).Msg("remote error")
			return
		}
		logger.Info().Str("remote", string(line)).Msg("remote progress")
	})
	_, err = io.Copy(os.Stdout, r)
	return err
}

func parseService(arg string) (client.Service, error) {
	switch strings.TrimSpace(arg) {
	case "upload-pack", "git-upload-pack":
		return client.UploadPack, nil
	case "receive-pack", "git-receive-pack":
		return client.ReceivePack, nil
	default:
		return "", fmt.Errorf("wirectl: unsupported -service %q", arg)
	}
}

func closeTransport(logger zerolog.Logger, transport client.Transport) {
	if c, ok := transport.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn().Err(err).Msg("close transport")
		}
	}
}
