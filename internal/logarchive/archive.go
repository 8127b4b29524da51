package logarchive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Archive appends log lines to a per-session file and can package the log
// directory as a zip.
type Archive struct {
	mu          sync.Mutex
	rootDir     string
	sessionFile string
	echo        io.Writer
	now         func() time.Time

	// writeFailing suppresses repeated failure notices until a write succeeds.
	writeFailing bool
}

// New opens a session log under rootDir. Lines are also copied to echo when
// it is non-nil.
func New(rootDir string, echo io.Writer) (*Archive, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	a := &Archive{
		rootDir: rootDir,
		echo:    echo,
		now:     time.Now,
	}
	a.sessionFile = filepath.Join(rootDir, "session-"+a.now().Format("20060102-150405")+".log")
	a.Log("INFO", "BOOT", "log archive initialized", rootDir)
	return a, nil
}

func (a *Archive) RootDir() string {
	if a == nil {
		return ""
	}
	return a.rootDir
}

func (a *Archive) SessionFile() string {
	if a == nil {
		return ""
	}
	return a.sessionFile
}

func (a *Archive) Log(level, stage, message, detail string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	line := fmt.Sprintf("[%s] [%s] [%s] %s", a.now().Format("15:04:05.000"), level, stage, message)
	if strings.TrimSpace(detail) != "" {
		line += " | " + detail
	}
	line += "\n"
	if a.echo != nil {
		_, _ = io.WriteString(a.echo, line)
	}
	if err := a.appendLine(line); err != nil {
		if !a.writeFailing && a.echo != nil {
			fmt.Fprintf(a.echo, "[%s] [ERROR] [LOG] session log write failed | %v\n", a.now().Format("15:04:05.000"), err)
		}
		a.writeFailing = true
		return
	}
	a.writeFailing = false
}

func (a *Archive) appendLine(line string) error {
	f, err := os.OpenFile(a.sessionFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ExportZip writes every file under the log directory to w as a zip archive.
func (a *Archive) ExportZip(w io.Writer) error {
	if a == nil {
		return fmt.Errorf("log archive unavailable")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	zipWriter := zip.NewWriter(w)
	err := filepath.Walk(a.rootDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(a.rootDir, path)
		if err != nil {
			return err
		}
		entry, err := zipWriter.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		_ = zipWriter.Close()
		return fmt.Errorf("collect log files: %w", err)
	}
	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	return nil
}
