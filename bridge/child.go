// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// helperSearchPaths returns the configured helper_binary_path entries,
// falling back to the single "%B" token (the installation bin
// directory) when nothing is configured. The fallback warning is
// emitted at most once per endpoint.
func (ep *Endpoint) helperSearchPaths() []string {
	var paths []string
	if ep.Config != nil {
		paths = ep.Config.HelperBinaryPaths()
	}
	if len(paths) == 0 {
		ep.binPathWarn.Do(func() {
			ep.logger().Warn("no helper_binary_path configured, make sure your config " +
				"files are up to date; using the default binary path where the server " +
				"is installed")
		})
		paths = []string{"%B"}
	}
	return paths
}

func (ep *Endpoint) expandPath(path string) string {
	if ep.Config != nil {
		return ep.Config.ExpandLogPath(path)
	}
	return path
}

// resolveHelper walks the search paths looking for binary: directories
// are skipped, and the first other entry with the owner-execute bit
// wins. The file's stat record is returned alongside the path so the
// caller can run the permission probe without a second stat.
func (ep *Endpoint) resolveHelper(binary string) (string, *unix.Stat_t, error) {
	for _, searchPath := range ep.helperSearchPaths() {
		candidate := filepath.Join(ep.expandPath(searchPath), binary)

		var st unix.Stat_t
		if err := unix.Stat(candidate, &st); err != nil {
			continue
		}
		if st.Mode&unix.S_IFMT == unix.S_IFDIR {
			continue
		}
		if st.Mode&unix.S_IXUSR != 0 {
			return candidate, &st, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrHelperNotFound, binary)
}

// CheckIPC reports whether binary resolves to an executable helper on
// the configured search paths, without launching it.
func (ep *Endpoint) CheckIPC(binary string) bool {
	_, _, err := ep.resolveHelper(binary)
	return err == nil
}

// probeHelperPermissions verifies this process can actually execute a
// helper that is not world-executable: we must own it, run as root, or
// share its group directly or through a supplementary group.
func probeHelperPermissions(path string, st *unix.Stat_t) error {
	if st.Mode&unix.S_IXOTH != 0 {
		return nil
	}

	uid := unix.Getuid()
	if uid == int(st.Uid) || uid == 0 {
		return nil
	}
	if unix.Getgid() == int(st.Gid) {
		return nil
	}
	groups, err := unix.Getgroups()
	if err == nil {
		for _, gid := range groups {
			if gid == int(st.Gid) {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: cannot run binary '%s', the server was installed "+
		"setgid and you are not in that group. If you recently added your user "+
		"to the group, you will need to log out and back in to activate it. "+
		"You can check your groups with the 'groups' command.",
		ErrHelperNotRunnable, path)
}

// pipeStream presents the host's halves of the two child pipe pairs as
// a single duplex transport stream: reads come from the child's out
// pipe, writes go to the child's in pipe.
type pipeStream struct {
	reader *os.File
	writer *os.File
}

func (s *pipeStream) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *pipeStream) Write(p []byte) (int, error) { return s.writer.Write(p) }

func (s *pipeStream) Close() error {
	writeErr := s.writer.Close()
	readErr := s.reader.Close()
	if writeErr != nil {
		return writeErr
	}
	return readErr
}

// RunIPC resolves binary against the configured search paths, launches
// it as a child helper connected by a pipe pair, registers the child
// with the IPC registry, and starts the endpoint's read loop. The
// child is invoked as:
//
//	<resolved-path> --in-fd=3 --out-fd=4 [args...]
//
// where fd 3 is the child's read end (host writes) and fd 4 the
// child's write end (host reads). Any child exit tears the endpoint
// down; exit code 255 is reserved for exec failure inside the child.
func (ep *Endpoint) RunIPC(ctx context.Context, binary string, args ...string) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.running() {
		return ErrAlreadyRunning
	}
	if binary == "" {
		return fmt.Errorf("%w: no helper binary to launch", ErrHelperNotFound)
	}

	path, st, err := ep.resolveHelper(binary)
	if err != nil {
		ep.postMessage("External interface cannot find helper binary for launch: "+binary,
			MessageLevelError)
		return err
	}
	if err := probeHelperPermissions(path, st); err != nil {
		ep.postMessage(err.Error(), MessageLevelError)
		return err
	}

	// in pair: host writes, child reads. out pair: child writes, host
	// reads.
	childIn, hostIn, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPipeFailed, err)
	}
	hostOut, childOut, err := os.Pipe()
	if err != nil {
		childIn.Close()
		hostIn.Close()
		return fmt.Errorf("%w: %v", ErrPipeFailed, err)
	}

	cmd := exec.Command(path, append([]string{"--in-fd=3", "--out-fd=4"}, args...)...)
	// ExtraFiles land at fd 3 and 4 in the child, matching the argv
	// contract above. Stderr passes through for helper diagnostics.
	cmd.ExtraFiles = []*os.File{childIn, childOut}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		childIn.Close()
		hostIn.Close()
		hostOut.Close()
		childOut.Close()
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	// The child holds its own copies of these now.
	childIn.Close()
	childOut.Close()

	stream := &pipeStream{reader: hostOut, writer: hostIn}
	ep.stream = stream
	ep.helperBinary = binary
	ep.helperArgs = args
	ep.helperPID = cmd.Process.Pid
	if ep.Registry != nil {
		ep.Registry.Register(cmd.Process)
	}

	ep.stopped = false
	ep.cancelled = false
	ep.startLivenessLocked()
	ep.startReadLoop(ctx, stream)

	go ep.reapHelper(cmd)

	ep.logger().Info("launched external helper",
		"binary", path, "pid", cmd.Process.Pid)
	return nil
}

// reapHelper collects the child's exit status and routes it through
// the endpoint lifecycle: a clean exit closes the endpoint, anything
// else is a terminal error. When the endpoint already initiated
// teardown (and therefore killed the child itself), the exit is
// silent.
func (ep *Endpoint) reapHelper(cmd *exec.Cmd) {
	waitErr := cmd.Wait()
	if ep.Registry != nil {
		ep.Registry.Remove(cmd.Process.Pid)
	}

	ep.mu.Lock()
	binary := ep.helperBinary
	ep.helperPID = 0
	stopped := ep.stopped
	ep.mu.Unlock()
	if stopped {
		return
	}

	if waitErr == nil {
		ep.Close()
		return
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) && exitErr.ExitCode() == 255 {
		ep.triggerError(fmt.Errorf("%w: helper %s failed to exec: %v", ErrSpawnFailed, binary, waitErr))
		return
	}
	ep.triggerError(fmt.Errorf("helper %s exited: %v", binary, waitErr))
}

// Helper returns the binary name and arguments of the helper this
// endpoint launched. Both are empty in attach and write-callback
// modes.
func (ep *Endpoint) Helper() (string, []string) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.helperBinary, append([]string(nil), ep.helperArgs...)
}

// postMessage forwards text to the host message bus when one is
// attached.
func (ep *Endpoint) postMessage(text string, level MessageLevel) {
	if ep.MessageBus != nil {
		ep.MessageBus.Message(text, level)
	}
}
