package sshutil

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Client holds the connection settings of one host from ~/.ssh/config
type Client struct {
	Alias          string
	Host           string
	Port           string
	User           string
	Key            string
	StrictHostKeys bool

	conn *ssh.Client
}

// NewClient resolves alias through ~/.ssh/config
func NewClient(alias string) (*Client, error) {
	f, err := os.Open(filepath.Join(os.Getenv("HOME"), ".ssh", "config"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newClientFromConfig(alias, &ssh_config.Config{}), nil
		}
		return nil, fmt.Errorf("failed to read ssh config: %v", err)
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh config: %v", err)
	}
	return newClientFromConfig(alias, cfg), nil
}

func newClientFromConfig(alias string, cfg *ssh_config.Config) *Client {
	host, _ := cfg.Get(alias, "HostName")
	if host == "" {
		// Alias is the hostname itself
		host = alias
	}

	user, _ := cfg.Get(alias, "User")
	if user == "" {
		user = os.Getenv("USER")
	}

	port, _ := cfg.Get(alias, "Port")
	if port == "" {
		port = "22"
	}

	key, _ := cfg.Get(alias, "IdentityFile")
	strict, _ := cfg.Get(alias, "StrictHostKeyChecking")

	return &Client{
		Alias:          alias,
		Host:           host,
		Port:           port,
		User:           user,
		Key:            key,
		StrictHostKeys: strict != "no",
	}
}

// Connect opens the underlying SSH connection
func (c *Client) Connect() error {
	if c.conn != nil {
		return nil
	}

	hostKeyCallback, err := c.hostKeyCallback()
	if err != nil {
		return err
	}

	config := &ssh.ClientConfig{
		User:            c.User,
		Auth:            c.authMethods(),
		HostKeyCallback: hostKeyCallback,
		Timeout:         5 * time.Second,
	}

	addr := net.JoinHostPort(c.Host, c.Port)
	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return fmt.Errorf("SSH connection failed [%s]: %v", addr, err)
	}
	c.conn = conn
	return nil
}

// Close closes the connection if open
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// RunCommand runs cmd and returns its trimmed combined output
func (c *Client) RunCommand(cmd string) (string, error) {
	if err := c.Connect(); err != nil {
		return "", err
	}

	session, err := c.conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %v", err)
	}
	defer session.Close()

	output, err := session.CombinedOutput(cmd)
	if err != nil {
		return string(output), fmt.Errorf("command failed: %w\nOutput: %s", err, string(output))
	}
	return strings.TrimSpace(string(output)), nil
}

// RunPTY runs cmd inside a remote terminal and streams each output line to onLine.
// A non-zero exit status is returned as *ssh.ExitError.
func (c *Client) RunPTY(ctx context.Context, cmd string, onLine func(line string)) error {
	if err := c.Connect(); err != nil {
		return err
	}

	session, err := c.conn.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %v", err)
	}
	defer session.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 40, 200, modes); err != nil {
		return fmt.Errorf("failed to request pty: %v", err)
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to attach stdout: %v", err)
	}
	if err := session.Start(cmd); err != nil {
		return fmt.Errorf("failed to start remote command: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Signal(ssh.SIGKILL)
			_ = session.Close()
		case <-done:
		}
	}()

	readErr := streamLines(stdout, onLine)
	waitErr := session.Wait()

	if ctx.Err() != nil {
		return fmt.Errorf("remote command cancelled: %w", ctx.Err())
	}
	if readErr != nil {
		return fmt.Errorf("failed to read remote output: %w", readErr)
	}
	return waitErr
}

func streamLines(r io.Reader, onLine func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		onLine(strings.TrimRight(scanner.Text(), "\r"))
	}
	return scanner.Err()
}

func (c *Client) authMethods() []ssh.AuthMethod {
	authMethods := []ssh.AuthMethod{}

	// 1. SSH agent
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err == nil {
			agentClient := agent.NewClient(conn)
			signers, err := agentClient.Signers()
			if err == nil {
				authMethods = append(authMethods, ssh.PublicKeys(signers...))
			}
		}
	}

	// 2. IdentityFile from config, then the usual defaults
	keyFiles := []string{}
	if c.Key != "" && c.Key != "~/.ssh/identity" {
		keyFiles = append(keyFiles, expandPath(c.Key))
	}
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		dk := filepath.Join(os.Getenv("HOME"), ".ssh", name)
		if _, err := os.Stat(dk); err == nil {
			keyFiles = append(keyFiles, dk)
		}
	}

	for _, kPath := range keyFiles {
		key, err := os.ReadFile(kPath)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err == nil {
			authMethods = append(authMethods, ssh.PublicKeys(signer))
		}
	}

	return authMethods
}

func (c *Client) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if !c.StrictHostKeys {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(filepath.Join(os.Getenv("HOME"), ".ssh", "known_hosts"))
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts (set StrictHostKeyChecking no for %s to skip): %v", c.Alias, err)
	}
	return cb, nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(os.Getenv("HOME"), path[2:])
	}
	return path
}
