package faults

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
)

// FilesystemError normalizes low-level OS failures raised while reading
// specs or writing generated output. Recoverability depends on the
// underlying condition: permission, busy, and temporary-resource failures
// are recoverable; not-found and read-only are not.
type FilesystemError struct {
	*Record

	// Path is the offending filesystem path.
	Path string `json:"path"`
}

// fsClassification maps a normalized code to its recoverability.
var fsRecoverable = map[string]bool{
	CodeFilePermission:    true,
	CodeFileDiskFull:      true,
	CodeFileBusy:          true,
	CodeFileTooManyOpen:   true,
	CodeFileNotFound:      false,
	CodeFilePathTooLong:   false,
	CodeFileSymlinkLoop:   false,
	CodeFileReadOnly:      false,
	CodeFileAlreadyExists: false,
	CodeFileError:         false,
}

// classifyFSError normalizes an OS-level error to a taxonomy code.
func classifyFSError(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return CodeFileNotFound
	case errors.Is(err, fs.ErrPermission):
		return CodeFilePermission
	case errors.Is(err, fs.ErrExist):
		return CodeFileAlreadyExists
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			return CodeFilePermission
		case syscall.ENOENT:
			return CodeFileNotFound
		case syscall.ENOSPC, syscall.EDQUOT:
			return CodeFileDiskFull
		case syscall.ENAMETOOLONG:
			return CodeFilePathTooLong
		case syscall.EBUSY, syscall.ETXTBSY:
			return CodeFileBusy
		case syscall.EMFILE, syscall.ENFILE:
			return CodeFileTooManyOpen
		case syscall.ELOOP:
			return CodeFileSymlinkLoop
		case syscall.EROFS:
			return CodeFileReadOnly
		}
	}
	return CodeFileError
}

// NewFilesystemError classifies an OS-level failure for path into a
// normalized filesystem record, synthesizing platform-appropriate
// remediation commands and alternative output directories.
func NewFilesystemError(operation, path string, cause error, opts Options) *FilesystemError {
	code := classifyFSError(cause)

	if opts.Category == "" {
		opts.Category = CategoryFilesystem
	}
	if opts.Operation == "" {
		opts.Operation = operation
	}
	opts.Recoverable = fsRecoverable[code]
	opts.Cause = cause

	msg := fmt.Sprintf("filesystem operation %s failed for %s", operation, path)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}

	rec := New(msg, code, opts)
	rec.AddContext("path", path)

	fe := &FilesystemError{Record: rec, Path: path}
	rec.Solutions = fe.remediationCommands(code)
	if issues := AnalyzePath(path); len(issues) > 0 {
		for _, issue := range issues {
			rec.AddContext("path_issue", issue)
		}
	}
	if code == CodeFilePermission || code == CodeFileDiskFull || code == CodeFileReadOnly {
		rec.Diagnostics = append(rec.Diagnostics, fe.alternativeDirSuggestions()...)
	}

	return fe
}

// systemDirs are directory roots generated code must never be written under.
var systemDirs = []string{
	"/etc", "/usr", "/bin", "/sbin", "/boot", "/proc", "/sys", "/dev",
	`C:\Windows`, `C:\Program Files`, `C:\Program Files (x86)`,
}

// windowsForbidden holds characters invalid in Windows path components.
const windowsForbidden = `<>:"|?*`

// AnalyzePath inspects a path for length limits, forbidden characters, and
// placement under a system directory. Returned strings describe each issue.
func AnalyzePath(path string) []string {
	var issues []string
	if path == "" {
		return []string{"path is empty"}
	}

	maxTotal := 4096
	if runtime.GOOS == "windows" {
		maxTotal = 260
	}
	if len(path) > maxTotal {
		issues = append(issues, fmt.Sprintf("path length %d exceeds the %d-character limit", len(path), maxTotal))
	}

	for _, component := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if len(component) > 255 {
			issues = append(issues, fmt.Sprintf("path component %q exceeds 255 bytes", component[:32]+"..."))
		}
		if runtime.GOOS == "windows" && strings.ContainsAny(component, windowsForbidden) {
			issues = append(issues, fmt.Sprintf("path component %q contains characters invalid on Windows (%s)", component, windowsForbidden))
		}
		for _, r := range component {
			if r < 0x20 {
				issues = append(issues, fmt.Sprintf("path component %q contains control characters", component))
				break
			}
		}
	}

	clean := filepath.Clean(path)
	for _, dir := range systemDirs {
		if strings.HasPrefix(clean, dir+string(filepath.Separator)) || clean == dir {
			issues = append(issues, fmt.Sprintf("path lies under the system directory %s", dir))
			break
		}
	}

	return issues
}

// remediationCommands synthesizes platform-specific commands the user can
// run to resolve the underlying condition.
func (e *FilesystemError) remediationCommands(code string) []string {
	windows := runtime.GOOS == "windows"
	switch code {
	case CodeFilePermission:
		if windows {
			return []string{
				fmt.Sprintf(`takeown /F "%s"`, e.Path),
				fmt.Sprintf(`icacls "%s" /grant %%USERNAME%%:F`, e.Path),
				"Run the generator from an elevated prompt",
			}
		}
		return []string{
			fmt.Sprintf("sudo chown $(whoami) %s", e.Path),
			fmt.Sprintf("chmod u+rw %s", e.Path),
			fmt.Sprintf("ls -la %s", filepath.Dir(e.Path)),
		}
	case CodeFileDiskFull:
		if windows {
			return []string{
				"Free disk space or choose another drive",
				fmt.Sprintf(`dir "%s" /s`, filepath.Dir(e.Path)),
			}
		}
		return []string{
			"df -h " + filepath.Dir(e.Path),
			"du -sh " + filepath.Dir(e.Path) + "/*",
			"Remove build artifacts or choose another output directory",
		}
	case CodeFileNotFound:
		if windows {
			return []string{fmt.Sprintf(`dir "%s"`, filepath.Dir(e.Path)), "Check the path for typos"}
		}
		return []string{fmt.Sprintf("ls -la %s", filepath.Dir(e.Path)), "Check the path for typos"}
	case CodeFileTooManyOpen:
		if windows {
			return []string{"Close other applications holding file handles"}
		}
		return []string{"ulimit -n", "Raise the open-file limit: ulimit -n 4096"}
	case CodeFileBusy:
		if windows {
			return []string{"Close the application holding the file open and retry"}
		}
		return []string{fmt.Sprintf("lsof %s", e.Path), "Close the process holding the file and retry"}
	case CodeFileReadOnly:
		return []string{"Choose a writable output directory", "Remount the filesystem read-write if intentional"}
	case CodeFilePathTooLong:
		return []string{"Shorten the output path", "Generate into a directory closer to the filesystem root"}
	case CodeFileSymlinkLoop:
		return []string{fmt.Sprintf("Inspect the symlink chain: ls -la %s", e.Path), "Remove the cyclic symlink"}
	default:
		return []string{fmt.Sprintf("Inspect the path: %s", e.Path)}
	}
}

// alternativeDirSuggestions proposes output directories likely to be
// writable when the configured one is not.
func (e *FilesystemError) alternativeDirSuggestions() []string {
	alts := []string{
		filepath.Join(os.TempDir(), "oasgen-output"),
		"./generated-fallback",
	}
	if home, err := os.UserHomeDir(); err == nil {
		alts = append(alts, filepath.Join(home, "oasgen-output"))
	}
	out := make([]string, len(alts))
	for i, a := range alts {
		out[i] = "Alternative output directory: " + a
	}
	return out
}
