package remote

// Package remote provides the secure-shell execution channel for the
// harness: one authenticated connection per run, remote command
// execution with streamed output, and file transfer with explicit
// per-file results.

import (
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/term"
)

// Client manages the SSH connection and the file-transfer channel to a
// remote host. The connection is established once and reused for every
// job in the run; Close releases it on all exit paths.
type Client struct {
	logger zerolog.Logger
	target Target
	conn   *ssh.Client
	ftp    *sftp.Client

	password func() (string, error)
}

// Option is a function that configures a Client before it connects.
type Option func(*Client)

// WithPasswordPrompt overrides how the password is obtained. The default
// prompts on the terminal.
func WithPasswordPrompt(fn func() (string, error)) Option {
	return func(c *Client) {
		c.password = fn
	}
}

// Connect dials the target, authenticating with the SSH agent when one
// is available and falling back to a password prompt, and opens the
// file-transfer channel over the same connection.
func Connect(logger zerolog.Logger, target Target, opts ...Option) (*Client, error) {
	c := &Client{
		logger: logger,
		target: target,
	}
	c.password = func() (string, error) {
		fmt.Fprintf(os.Stderr, "Enter the password for %s@%s: ", target.User, target.Host)
		pw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		return string(pw), err
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := &ssh.ClientConfig{
		User:            target.User,
		Auth:            c.authMethods(),
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	logger.Debug().Str("addr", target.Addr()).Str("user", target.User).Msg("Dialing remote host")
	conn, err := ssh.Dial("tcp", target.Addr(), cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target.Addr(), err)
	}

	ftp, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening file transfer channel: %w", err)
	}

	c.conn = conn
	c.ftp = ftp
	return c, nil
}

func (c *Client) authMethods() []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if a, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(a).Signers))
		} else {
			c.logger.Warn().Err(err).Msg("Failed to connect to ssh-agent")
		}
	}
	methods = append(methods, ssh.PasswordCallback(c.password))
	return methods
}

// Close tears down the file-transfer channel and the connection.
func (c *Client) Close() {
	c.logger.Debug().Str("host", c.target.Host).Msg("Closing remote connection")
	if c.ftp != nil {
		_ = c.ftp.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Target returns the parsed target this client is connected to.
func (c *Client) Target() Target {
	return c.target
}

// Run executes a command on the remote host and returns its combined
// output.
func (c *Client) Run(command string) (string, error) {
	sess, err := c.conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("opening session: %w", err)
	}
	defer sess.Close()

	c.logger.Debug().Str("host", c.target.Host).Str("command", command).Msg("Running remote command")
	out, err := sess.CombinedOutput(command)
	if err != nil {
		return string(out), fmt.Errorf("remote command failed: %w (output: %s)", err, out)
	}
	return string(out), nil
}

// Proc is a running remote command with merged stdout/stderr.
type Proc struct {
	Out  io.Reader
	sess *ssh.Session
	done chan error
}

// Wait blocks until the command exits and returns its error, if any. The
// output reader is drained/closed by then.
func (p *Proc) Wait() error {
	err := <-p.done
	p.sess.Close()
	return err
}

// Start executes a command on the remote host, returning a Proc whose
// Out delivers the merged stdout/stderr stream as it is produced.
func (c *Client) Start(command string) (*Proc, error) {
	sess, err := c.conn.NewSession()
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}

	pr, pw := io.Pipe()
	sess.Stdout = pw
	sess.Stderr = pw

	c.logger.Debug().Str("host", c.target.Host).Str("command", command).Msg("Starting remote command")
	if err := sess.Start(command); err != nil {
		sess.Close()
		return nil, fmt.Errorf("starting remote command: %w", err)
	}

	p := &Proc{Out: pr, sess: sess, done: make(chan error, 1)}
	go func() {
		err := sess.Wait()
		pw.Close()
		p.done <- err
	}()
	return p, nil
}

// Upload copies a local file into the remote path.
func (c *Client) Upload(localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := c.ftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", remotePath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("uploading %s: %w", localPath, err)
	}
	c.logger.Debug().Str("local", localPath).Str("remote", remotePath).Msg("Uploaded file")
	return nil
}

// TransferStatus classifies one download attempt.
type TransferStatus int

const (
	// TransferOK means the file was retrieved.
	TransferOK TransferStatus = iota
	// TransferNotFound means the remote file does not exist.
	TransferNotFound
	// TransferError means the transfer failed for another reason.
	TransferError
)

func (s TransferStatus) String() string {
	switch s {
	case TransferOK:
		return "ok"
	case TransferNotFound:
		return "not-found"
	case TransferError:
		return "transport-error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// TransferResult reports the outcome of one download attempt. Best-effort
// retrievals log these instead of propagating errors.
type TransferResult struct {
	Remote string
	Local  string
	Status TransferStatus
	Err    error
}

// Download copies a remote file to the local path, reporting an explicit
// per-file result instead of an error.
func (c *Client) Download(remotePath, localPath string) TransferResult {
	res := TransferResult{Remote: remotePath, Local: localPath}

	src, err := c.ftp.Open(remotePath)
	if err != nil {
		if os.IsNotExist(err) {
			res.Status = TransferNotFound
			return res
		}
		res.Status = TransferError
		res.Err = err
		return res
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		res.Status = TransferError
		res.Err = err
		return res
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		res.Status = TransferError
		res.Err = err
		return res
	}
	res.Status = TransferOK
	return res
}

// Stat checks that a remote file exists.
func (c *Client) Stat(remotePath string) error {
	_, err := c.ftp.Stat(remotePath)
	return err
}

// MkdirAll creates the remote directory and any missing parents.
func (c *Client) MkdirAll(remotePath string) error {
	return c.ftp.MkdirAll(remotePath)
}
