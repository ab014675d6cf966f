package main

import (
	"context"
	"fmt"
	"os"

	"deploykit/internal/app"
	"deploykit/internal/config"
	"deploykit/internal/credentials"
	"deploykit/internal/discover"
	"deploykit/internal/transporter"
	"deploykit/pkg/log"
	"deploykit/pkg/sshutil"
)

// GlobalOptions are the flags shared by every command
type GlobalOptions struct {
	ConfigPath  string
	LogLevel    string
	Username    string
	Transporter string
	Remote      string
}

// TransferOptions defines flags for download and upload
type TransferOptions struct {
	GlobalOptions
	AppleID     string
	MetadataDir string
	Dir         string // destination for download, package parent for upload
}

// session bundles what a single command run needs
type session struct {
	cfg    *config.Config
	tr     *transporter.Transporter
	remote *sshutil.Client
}

func (s *session) Close() {
	if s.remote != nil {
		s.remote.Close()
	}
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(opts GlobalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Username != "" {
		cfg.Credentials.Username = opts.Username
	}
	if opts.Transporter != "" {
		cfg.Transporter.Path = opts.Transporter
	}
	if opts.Remote != "" {
		cfg.Transporter.Remote = opts.Remote
	}

	log.Init(log.LevelFromString(cfg.LogLevel))
	return cfg, nil
}

// resolveApp looks appleID up in the config, --metadata-dir wins over the config entry
func resolveApp(cfg *config.Config, appleID, metadataDir string) (*app.App, error) {
	if metadataDir != "" {
		return app.New(appleID, metadataDir)
	}
	if a := cfg.App(appleID); a != nil {
		return a, nil
	}
	return nil, fmt.Errorf("app %s is not configured, add it to the config or pass --metadata-dir", appleID)
}

// credentialChain builds the providers selected by the config
func credentialChain(ctx context.Context, cfg config.CredentialsConfig) (credentials.Chain, error) {
	chain := credentials.Chain{credentials.NewEnvProvider(cfg.UsernameEnv, cfg.PasswordEnv)}

	if cfg.AWSSecretID != "" {
		p, err := credentials.NewSecretsManagerProvider(ctx, cfg.AWSSecretID, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
	}

	if cfg.PromptEnabled() {
		chain = append(chain, credentials.NewPromptProvider(os.Stdin, os.Stderr))
	}
	return chain, nil
}

func newSession(ctx context.Context, opts GlobalOptions) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	chain, err := credentialChain(ctx, cfg.Credentials)
	if err != nil {
		return nil, err
	}

	tOpts := transporter.Options{
		Username:    cfg.Credentials.Username,
		Credentials: chain,
		BinaryPath:  cfg.Transporter.Path,
		Logger:      log.L(),
	}

	s := &session{cfg: cfg}

	if cfg.Transporter.Remote == "" {
		s.tr, err = transporter.NewTransporter(ctx, tOpts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	// Remote host: the binary lives there, skip local lookup
	if tOpts.BinaryPath == "" {
		tOpts.BinaryPath = transporter.DefaultBinaryPath
	}

	client, err := sshutil.NewClient(cfg.Transporter.Remote)
	if err != nil {
		return nil, err
	}
	s.remote = client

	info, err := discover.Probe(client, tOpts.BinaryPath)
	if err != nil {
		s.Close()
		return nil, err
	}
	if !info.BinaryPresent {
		s.Close()
		return nil, &transporter.ConfigurationError{
			Msg: fmt.Sprintf("%s not found on %s (%s)", tOpts.BinaryPath, cfg.Transporter.Remote, info.Hostname),
		}
	}
	log.L().Debug("Remote host ready", "host", info.Hostname, "os", info.OS, "version", info.OSVersion)

	s.tr, err = transporter.NewTransporterWithDeps(ctx, tOpts, transporter.NewRemoteRunner(client))
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// RunDownload fetches the metadata of one app
func RunDownload(ctx context.Context, opts TransferOptions) error {
	s, err := newSession(ctx, opts.GlobalOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := resolveApp(s.cfg, opts.AppleID, opts.MetadataDir)
	if err != nil {
		return err
	}

	log.L().Info("Downloading metadata...", "app", a.AppleID)
	res, err := s.tr.Download(ctx, a, opts.Dir)
	if err != nil {
		return err
	}
	reportWarnings(res)
	log.L().Info("Download finished", "app", a.AppleID)
	return nil
}

// RunUpload sends the itmsp package of one app
func RunUpload(ctx context.Context, opts TransferOptions) error {
	s, err := newSession(ctx, opts.GlobalOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := resolveApp(s.cfg, opts.AppleID, opts.MetadataDir)
	if err != nil {
		return err
	}

	log.L().Info("Uploading package...", "app", a.AppleID, "package", a.PackagePath(opts.Dir))
	res, err := s.tr.Upload(ctx, a, opts.Dir)
	if err != nil {
		return err
	}
	reportWarnings(res)
	return nil
}

// RunDoctor reports where the transporter would run without transferring anything
func RunDoctor(opts GlobalOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if cfg.Transporter.Remote == "" {
		bin, err := transporter.NewLocator().Locate(cfg.Transporter.Path)
		if err != nil {
			return err
		}
		fmt.Printf("Transporter : %s (local)\n", bin)
	} else {
		bin := cfg.Transporter.Path
		if bin == "" {
			bin = transporter.DefaultBinaryPath
		}
		client, err := sshutil.NewClient(cfg.Transporter.Remote)
		if err != nil {
			return err
		}
		defer client.Close()

		info, err := discover.Probe(client, bin)
		if err != nil {
			return err
		}
		fmt.Printf("Remote host : %s (%s %s)\n", info.Hostname, info.OS, info.OSVersion)
		fmt.Printf("Transporter : %s (present: %v)\n", bin, info.BinaryPresent)
		if !info.IsMacOS() {
			fmt.Println("Warning     : remote host is not macOS")
		}
	}

	fmt.Printf("Apps        : %d configured\n", len(cfg.Apps))
	for _, a := range cfg.Apps {
		fmt.Printf("  - %s -> %s\n", a.AppleID, a.MetadataDir)
	}
	return nil
}

func reportWarnings(res *transporter.Result) {
	for _, w := range res.Warnings {
		log.L().Warn("Transporter warning", "message", w)
	}
}
