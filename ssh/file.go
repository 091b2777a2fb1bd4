// SPDX-License-Identifier: EPL-2.0

package ssh

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/sftp"

	"github.com/go-spur/spur"
)

// sftpFile adapts a *sftp.File to the spur.File contract with explicit
// method forwarding rather than delegation, and owns the SFTP subclient
// it was opened through so Close releases both together.
type sftpFile struct {
	f      *sftp.File
	client *sftp.Client

	readable, writable, seekable bool
}

func openSftpFile(client *sftp.Client, path, mode string) (spur.File, error) {
	flag, readable, writable, err := parseSftpMode(mode)
	if err != nil {
		return nil, err
	}
	f, err := client.OpenFile(path, flag)
	if err != nil {
		return nil, err
	}
	return &sftpFile{f: f, client: client, readable: readable, writable: writable, seekable: true}, nil
}

// parseSftpMode mirrors the local engine's mode parsing: "b" only
// changes how a caller should treat the bytes it gets back, not which
// flags are used to open the remote file.
func parseSftpMode(mode string) (flag int, readable, writable bool, err error) {
	plus := strings.Contains(mode, "+")
	switch {
	case strings.Contains(mode, "r"):
		readable = true
		flag = os.O_RDONLY
		if plus {
			flag, writable = os.O_RDWR, true
		}
	case strings.Contains(mode, "w"):
		writable = true
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if plus {
			flag, readable = os.O_RDWR|os.O_CREATE|os.O_TRUNC, true
		}
	case strings.Contains(mode, "a"):
		writable = true
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		if plus {
			flag, readable = os.O_RDWR|os.O_CREATE|os.O_APPEND, true
		}
	default:
		return 0, false, false, fmt.Errorf("ssh: invalid open mode %q", mode)
	}
	return flag, readable, writable, nil
}

func (sf *sftpFile) Read(p []byte) (int, error)  { return sf.f.Read(p) }
func (sf *sftpFile) Write(p []byte) (int, error) { return sf.f.Write(p) }
func (sf *sftpFile) Seek(offset int64, whence int) (int64, error) {
	return sf.f.Seek(offset, whence)
}

func (sf *sftpFile) Close() error {
	ferr := sf.f.Close()
	cerr := sf.client.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

func (sf *sftpFile) Readable() bool { return sf.readable }
func (sf *sftpFile) Writable() bool { return sf.writable }
func (sf *sftpFile) Seekable() bool { return sf.seekable }
