// picture.go tracks visual profile-picture changes by byte comparison
// against the archived copy. cdn urls are not stable identifiers for the
// same image, so url equality is never used.

package monitor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gramwatch-backend/internal/scrapers/instagram"
	"gramwatch-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

const PictureDir = "profile_pics"

const archiveStampFormat = "20060102_150405"

type PictureChangeKind string

const (
	PictureInitial PictureChangeKind = "initial"
	PictureUpdate  PictureChangeKind = "update"
	PictureNone    PictureChangeKind = "none"
)

// PictureCheck reports the outcome of one avatar comparison.
type PictureCheck struct {
	Changed bool
	Kind    PictureChangeKind
	Message string
	OldFile string
	NewFile string
}

// PictureTracker downloads candidate avatars and maintains the per-handle
// archive directory: a "current" file plus timestamped archive slots.
type PictureTracker struct {
	Http *resty.Client
	now  func() time.Time
}

func NewPictureTracker() *PictureTracker {
	client := resty.New()
	client.SetTimeout(time.Second * 15)
	telemetry.InstrumentResty(client, "gramwatch.monitor.picture_http")

	return &PictureTracker{
		Http: client,
		now:  time.Now,
	}
}

func (t *PictureTracker) download(ctx context.Context, url, dest string) error {
	res, err := t.Http.R().
		SetContext(ctx).
		SetHeader("user-agent", instagram.RandomUserAgent()).
		SetOutput(dest).
		Get(url)
	if err != nil {
		return err
	}
	if res.StatusCode() >= 400 {
		os.Remove(dest)
		return fmt.Errorf("download %s: status %d", url, res.StatusCode())
	}
	return nil
}

func sameBytes(path1, path2 string) (bool, error) {
	data1, err := os.ReadFile(path1)
	if err != nil {
		return false, err
	}
	data2, err := os.ReadFile(path2)
	if err != nil {
		return false, err
	}
	return bytes.Equal(data1, data2), nil
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0644)
}

// Check downloads the candidate image and compares it byte-for-byte with
// the archived current one. on mismatch the old file moves into a
// timestamped archive slot and the new one is promoted, with a second
// timestamped copy of the adopted image kept alongside. a failed download
// leaves the existing archive untouched.
func (t *PictureTracker) Check(ctx context.Context, handle, pictureUrl, outputDir string) (PictureCheck, error) {
	ctx, span := tracer.Start(ctx, "pictures:Check")
	defer span.End()

	if pictureUrl == "" {
		return PictureCheck{Kind: PictureNone}, nil
	}

	picDir := filepath.Join(outputDir, PictureDir)
	err := os.MkdirAll(picDir, 0755)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create picture directory")
		return PictureCheck{Kind: PictureNone}, err
	}

	currentFile := filepath.Join(picDir, handle+"_current.jpg")
	newFile := filepath.Join(picDir, handle+"_new.jpg")

	err = t.download(ctx, pictureUrl, newFile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download candidate image")
		return PictureCheck{Kind: PictureNone}, err
	}

	stamp := t.now().Format(archiveStampFormat)

	_, err = os.Stat(currentFile)
	if os.IsNotExist(err) {
		archiveFile := filepath.Join(picDir, fmt.Sprintf("%s_%s.jpg", handle, stamp))
		err = copyFile(newFile, archiveFile)
		if err != nil {
			span.RecordError(err)
		}
		err = os.Rename(newFile, currentFile)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to promote initial image")
			return PictureCheck{Kind: PictureNone}, err
		}
		return PictureCheck{
			Changed: true,
			Kind:    PictureInitial,
			Message: fmt.Sprintf("Initial profile picture saved for %s", handle),
			NewFile: archiveFile,
		}, nil
	}
	if err != nil {
		return PictureCheck{Kind: PictureNone}, err
	}

	same, err := sameBytes(currentFile, newFile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compare images")
		os.Remove(newFile)
		return PictureCheck{Kind: PictureNone}, err
	}
	if same {
		os.Remove(newFile)
		return PictureCheck{Kind: PictureNone}, nil
	}

	oldArchive := filepath.Join(picDir, fmt.Sprintf("%s_old_%s.jpg", handle, stamp))
	err = os.Rename(currentFile, oldArchive)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to archive previous image")
		os.Remove(newFile)
		return PictureCheck{Kind: PictureNone}, err
	}
	err = os.Rename(newFile, currentFile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to promote new image")
		return PictureCheck{Kind: PictureNone}, err
	}

	newArchive := filepath.Join(picDir, fmt.Sprintf("%s_%s.jpg", handle, stamp))
	err = copyFile(currentFile, newArchive)
	if err != nil {
		span.RecordError(err)
	}

	return PictureCheck{
		Changed: true,
		Kind:    PictureUpdate,
		Message: fmt.Sprintf("Profile picture changed for %s", handle),
		OldFile: oldArchive,
		NewFile: newArchive,
	}, nil
}
