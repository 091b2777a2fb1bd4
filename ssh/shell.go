// SPDX-License-Identifier: EPL-2.0

// Package ssh implements spur.Shell against a remote host reached over
// SSH: it opens one session channel per spawned command, smuggles PID,
// working-directory, and command-existence metadata ahead of the
// program's own output on that channel's stdout, and exposes file
// transfer through SFTP.
package ssh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/go-spur/spur"
	"github.com/go-spur/spur/internal/cleanup"
	"github.com/go-spur/spur/internal/iocapture"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "ssh"})

// HostKeyPolicy selects how a Shell reacts to the remote host's
// presented key during the initial handshake.
type HostKeyPolicy int

const (
	// HostKeyRaise fails the connection unless the host key matches an
	// entry already present in the known_hosts source. This is the
	// default.
	HostKeyRaise HostKeyPolicy = iota
	// HostKeyWarn logs a warning on a missing or mismatched key but
	// connects anyway.
	HostKeyWarn
	// HostKeyAcceptBlindly never checks the host key.
	HostKeyAcceptBlindly
	// HostKeyAutoAdd accepts and records keys for hosts not already
	// known, but still rejects a key that contradicts a known entry.
	HostKeyAutoAdd
)

// Config describes how to reach and authenticate to a remote host.
// Hostname is the only required field; NewConfig fills in the rest of
// spec.md §6's documented defaults.
type Config struct {
	Hostname string
	Port     int
	Username string

	Password       string
	PrivateKeyFile string
	// LookForKeys, when true, also offers keys held by a running
	// ssh-agent (via SSH_AUTH_SOCK).
	LookForKeys bool

	LoadSystemHostKeys bool
	KnownHostsFile     string
	HostKeyPolicy      HostKeyPolicy

	ConnectTimeout time.Duration

	// PreConnectedSocket, if set, is used instead of dialing Hostname:Port.
	PreConnectedSocket net.Conn

	// ShellType selects the wrapping protocol. The zero value behaves as
	// Sh.
	ShellType ShellType
}

// NewConfig returns a Config for hostname with spec.md §6's documented
// defaults: port 22, look-for-keys and load-system-host-keys enabled, a
// 60 second connect timeout, the raising host-key policy, and the sh
// ShellType.
func NewConfig(hostname string) Config {
	return Config{
		Hostname:           hostname,
		Port:               22,
		LookForKeys:        true,
		LoadSystemHostKeys: true,
		ConnectTimeout:     60 * time.Second,
		HostKeyPolicy:      HostKeyRaise,
		ShellType:          Sh,
	}
}

// Shell spawns children on a remote host reached over SSH. Connection is
// lazy: the first Spawn/Run/Open/... call dials and authenticates; the
// client is cached afterward until Close.
type Shell struct {
	cfg Config

	mu     sync.Mutex
	client *ssh.Client
	closed bool
}

// New returns a Shell bound to cfg. It does not connect until first use.
func New(cfg Config) *Shell {
	return &Shell{cfg: cfg}
}

func (s *Shell) shellType() ShellType {
	if s.cfg.ShellType.generate == nil {
		return Sh
	}
	return s.cfg.ShellType
}

func (s *Shell) port() int {
	if s.cfg.Port == 0 {
		return 22
	}
	return s.cfg.Port
}

func (s *Shell) connect() (*ssh.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("ssh: shell is closed")
	}
	if s.client != nil {
		return s.client, nil
	}

	auths, err := s.authMethods()
	if err != nil {
		return nil, &spur.ConnectionError{OriginalError: err, OriginalTraceback: stackTrace()}
	}

	hostKeyCallback, err := s.hostKeyCallback()
	if err != nil {
		return nil, &spur.ConnectionError{OriginalError: err, OriginalTraceback: stackTrace()}
	}

	clientCfg := &ssh.ClientConfig{
		User:            s.cfg.Username,
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
		Timeout:         s.cfg.ConnectTimeout,
	}

	addr := net.JoinHostPort(s.cfg.Hostname, strconv.Itoa(s.port()))

	conn := s.cfg.PreConnectedSocket
	if conn == nil {
		dialTimeout := s.cfg.ConnectTimeout
		if dialTimeout == 0 {
			dialTimeout = 60 * time.Second
		}
		var derr error
		conn, derr = net.DialTimeout("tcp", addr, dialTimeout)
		if derr != nil {
			return nil, &spur.ConnectionError{OriginalError: derr, OriginalTraceback: stackTrace()}
		}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		return nil, &spur.ConnectionError{OriginalError: err, OriginalTraceback: stackTrace()}
	}

	s.client = ssh.NewClient(sshConn, chans, reqs)
	return s.client, nil
}

func (s *Shell) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if s.cfg.Password != "" {
		methods = append(methods, ssh.Password(s.cfg.Password))
	}

	if s.cfg.PrivateKeyFile != "" {
		key, err := os.ReadFile(s.cfg.PrivateKeyFile)
		if err != nil {
			return nil, err
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if s.cfg.LookForKeys {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			conn, err := net.Dial("unix", sock)
			if err != nil {
				logger.Debug("could not reach ssh-agent", "error", err)
			} else {
				ag := agent.NewClient(conn)
				methods = append(methods, ssh.PublicKeysCallback(ag.Signers))
			}
		}
	}

	if len(methods) == 0 {
		return nil, errors.New("ssh: no authentication method configured")
	}
	return methods, nil
}

func (s *Shell) knownHostsFile() string {
	if s.cfg.KnownHostsFile != "" {
		return s.cfg.KnownHostsFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "known_hosts")
}

func (s *Shell) knownHostsCallback() (ssh.HostKeyCallback, error) {
	file := s.knownHostsFile()
	if file == "" {
		return nil, errors.New("ssh: could not resolve a known_hosts path")
	}
	return knownhosts.New(file)
}

func (s *Shell) hostKeyCallback() (ssh.HostKeyCallback, error) {
	switch s.cfg.HostKeyPolicy {
	case HostKeyAcceptBlindly:
		return ssh.InsecureIgnoreHostKey(), nil

	case HostKeyWarn:
		cb, err := s.knownHostsCallback()
		if err != nil {
			logger.Warn("no known_hosts source available, accepting host key unverified", "error", err)
			return ssh.InsecureIgnoreHostKey(), nil
		}
		return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			if verr := cb(hostname, remote, key); verr != nil {
				logger.Warn("host key does not match known_hosts", "host", hostname, "error", verr)
			}
			return nil
		}, nil

	case HostKeyAutoAdd:
		return s.autoAddCallback()

	default: // HostKeyRaise
		return s.knownHostsCallback()
	}
}

// autoAddCallback accepts and records any host not already present in
// known_hosts, while still rejecting a key that contradicts an existing
// entry.
func (s *Shell) autoAddCallback() (ssh.HostKeyCallback, error) {
	file := s.knownHostsFile()
	if file == "" {
		return nil, errors.New("ssh: could not resolve a known_hosts path for the auto-add policy")
	}

	cb, cbErr := knownhosts.New(file)

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		if cbErr == nil {
			if verr := cb(hostname, remote, key); verr == nil {
				return nil
			} else {
				var keyErr *knownhosts.KeyError
				if !errors.As(verr, &keyErr) || len(keyErr.Want) > 0 {
					return verr
				}
			}
		}
		return appendKnownHost(file, hostname, key)
	}, nil
}

func appendKnownHost(file, hostname string, key ssh.PublicKey) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	_, err = fmt.Fprintln(f, line)
	return err
}

// Spawn opens a new SSH session, transmits the wrapped command C3
// builds, and consumes the in-band framing before returning a handle to
// the remaining stream.
func (s *Shell) Spawn(argv []string, opts spur.CommandOptions) (spur.Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("ssh: argv must be non-empty")
	}

	client, err := s.connect()
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, err
	}

	if opts.UsePTY {
		if err := session.RequestPty("xterm", 80, 40, ssh.TerminalModes{}); err != nil {
			session.Close()
			return nil, err
		}
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, err
	}
	stdoutPipe, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, err
	}

	var stderrPipe io.Reader
	if opts.UsePTY {
		// Merged into stdout at the remote end, same as local's PTY path.
		r, w := io.Pipe()
		_ = w.Close()
		stderrPipe = r
	} else {
		stderrPipe, err = session.StderrPipe()
		if err != nil {
			session.Close()
			return nil, err
		}
	}

	shellType := s.shellType()
	wrapped, err := shellType.GenerateRunCommand(argv, opts)
	if err != nil {
		session.Close()
		return nil, err
	}

	if err := session.Start(wrapped); err != nil {
		session.Close()
		return nil, err
	}

	bufOut := bufio.NewReader(stdoutPipe)
	pid, havePID, err := consumeFraming(bufOut, shellType, argv, fromCommandOptions(opts))
	if err != nil {
		session.Close()
		return nil, err
	}

	ioh := iocapture.NewIoHandler(
		iocapture.Channel{In: bufOut, Out: opts.Stdout, IsPTY: opts.UsePTY},
		iocapture.Channel{In: stderrPipe, Out: opts.Stderr},
	)

	p := newProcess(s, session, stdin, ioh, opts, pid, havePID)

	handle := cleanup.Register(p, nil)
	cleanup.Watch(context.Background(), p, handle)

	return p, nil
}

// Run spawns argv and waits for it to complete.
func (s *Shell) Run(ctx context.Context, argv []string, opts spur.CommandOptions) (*spur.ExecutionResult, error) {
	p, err := s.Spawn(argv, opts)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}

func (s *Shell) sftpClient() (*sftp.Client, error) {
	client, err := s.connect()
	if err != nil {
		return nil, err
	}
	return sftp.NewClient(client)
}

// Open obtains a fresh SFTP subclient and opens path on it. Closing the
// returned File also closes that subclient.
func (s *Shell) Open(path string, mode string) (spur.File, error) {
	client, err := s.sftpClient()
	if err != nil {
		return nil, err
	}
	f, err := openSftpFile(client, path, mode)
	if err != nil {
		client.Close()
		return nil, err
	}
	return f, nil
}

// WriteFile writes contents to path in one call, creating any missing
// parent directories first.
func (s *Shell) WriteFile(remotePath string, contents []byte) error {
	if _, err := s.Run(context.Background(), []string{"mkdir", "-p", path.Dir(remotePath)}, spur.CommandOptions{}); err != nil {
		return err
	}
	client, err := s.sftpClient()
	if err != nil {
		return err
	}
	defer client.Close()

	f, err := client.Create(remotePath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(contents)
	return err
}

// UploadFile copies the local file at localPath to remotePath over SFTP.
func (s *Shell) UploadFile(localPath, remotePath string) error {
	local, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer local.Close()

	client, err := s.sftpClient()
	if err != nil {
		return err
	}
	defer client.Close()

	remote, err := client.Create(remotePath)
	if err != nil {
		return err
	}
	defer remote.Close()

	_, err = io.Copy(remote, local)
	return err
}

// UploadDir tars and gzips localDir, ships the archive over SFTP to a
// scratch path under /tmp, extracts it into remoteDir, and removes the
// scratch archive.
func (s *Shell) UploadDir(localDir, remoteDir string, ignore func(relPath string) bool) error {
	archivePath, err := tarGzipDir(localDir, ignore)
	if err != nil {
		return err
	}
	defer os.Remove(archivePath)

	remoteArchive := path.Join("/tmp", uuid.NewString()+".tar.gz")
	if err := s.UploadFile(archivePath, remoteArchive); err != nil {
		return err
	}

	ctx := context.Background()
	if _, err := s.Run(ctx, []string{"mkdir", "-p", remoteDir}, spur.CommandOptions{}); err != nil {
		return err
	}
	if _, err := s.Run(ctx, []string{"tar", "xzf", remoteArchive, "--strip-components", "1", "--directory", remoteDir}, spur.CommandOptions{}); err != nil {
		return err
	}
	_, err = s.Run(ctx, []string{"rm", remoteArchive}, spur.CommandOptions{})
	return err
}

// TemporaryDir creates a scratch directory on the remote host via
// mktemp --directory and returns a cleanup that removes it recursively.
func (s *Shell) TemporaryDir(prefix string) (string, func() error, error) {
	argv := []string{"mktemp", "--directory"}
	if prefix != "" {
		argv = append(argv, "-t", prefix+"XXXXXX")
	}
	res, err := s.Run(context.Background(), argv, spur.CommandOptions{})
	if err != nil {
		return "", nil, err
	}
	dir := strings.TrimSpace(string(res.Output))
	cleanupFn := func() error {
		_, err := s.Run(context.Background(), []string{"rm", "-rf", dir}, spur.CommandOptions{})
		return err
	}
	return dir, cleanupFn, nil
}

// Files returns the cp/mkdir -p convenience wrapper.
func (s *Shell) Files() *spur.Files {
	return spur.NewFiles(s)
}

// Close releases the cached SSH connection, if any. It is idempotent;
// after Close, further Spawn/Run calls fail.
func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	return nil
}
