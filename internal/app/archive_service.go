package app

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	domainTelegram "homework_intake_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// ArchiveService stores the content of notes submissions on disk, one
// directory per student, so it can be zipped and handed back later.
type ArchiveService struct {
	tg      domainTelegram.Client
	baseDir string
	logger  *logrus.Entry
	now     func() time.Time
}

func NewArchiveService(tg domainTelegram.Client, baseDir string, logger *logrus.Entry) *ArchiveService {
	return &ArchiveService{
		tg:      tg,
		baseDir: baseDir,
		logger:  logger,
		now:     time.Now,
	}
}

// EnsureBaseDir creates the archive root. Called once on startup and after a
// full reset.
func (s *ArchiveService) EnsureBaseDir() error {
	return os.MkdirAll(s.baseDir, 0o755)
}

// slugify keeps letters and digits, replacing everything else with '_', so
// section names are safe as directory components.
func slugify(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, v)
}

func (s *ArchiveService) topicDir(studentID int64, section, topicID string) string {
	return filepath.Join(
		s.baseDir,
		strconv.FormatInt(studentID, 10),
		slugify(section)+"_"+slugify(topicID),
	)
}

// SaveText writes a text submission as a timestamped .txt file.
func (s *ArchiveService) SaveText(studentID int64, section, topicID, text string) error {
	dir := s.topicDir(studentID, section, topicID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating archive dir: %w", err)
	}
	name := s.now().UTC().Format("20060102_150405") + ".txt"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
		return fmt.Errorf("error writing text archive: %w", err)
	}
	return nil
}

// SaveFile downloads a file through the gateway and stores it under the
// student's topic directory, keeping the remote extension when there is one.
func (s *ArchiveService) SaveFile(studentID int64, section, topicID, fileID string) error {
	data, remoteName, err := s.tg.Download(fileID)
	if err != nil {
		return fmt.Errorf("error downloading file %s: %w", fileID, err)
	}

	ext := filepath.Ext(remoteName)
	if ext == "" {
		ext = ".jpg"
	}

	dir := s.topicDir(studentID, section, topicID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating archive dir: %w", err)
	}
	name := fmt.Sprintf("file_%s%s", s.now().UTC().Format("20060102_150405.000000000"), ext)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("error writing file archive: %w", err)
	}
	return nil
}

// ZipStudentArchive packages everything stored for one student. A nil result
// with a nil error means nothing has been archived yet.
func (s *ArchiveService) ZipStudentArchive(studentID int64) ([]byte, error) {
	root := filepath.Join(s.baseDir, strconv.FormatInt(studentID, 10))
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	empty := true
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		empty = false
		return nil
	})
	if err != nil {
		zw.Close()
		return nil, fmt.Errorf("error zipping archive for student %d: %w", studentID, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("error finishing archive zip: %w", err)
	}
	if empty {
		return nil, nil
	}
	return buf.Bytes(), nil
}

// RemoveStudentArchive deletes a student's directory, if any.
func (s *ArchiveService) RemoveStudentArchive(studentID int64) error {
	return os.RemoveAll(filepath.Join(s.baseDir, strconv.FormatInt(studentID, 10)))
}

// ResetAll wipes and recreates the archive root.
func (s *ArchiveService) ResetAll() error {
	if err := os.RemoveAll(s.baseDir); err != nil {
		return fmt.Errorf("error removing archive root: %w", err)
	}
	return s.EnsureBaseDir()
}
