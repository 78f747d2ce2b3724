// Package maintenance runs scheduled background jobs against the catalog.
// The only job today is the orphan-asset report: record deletion never
// cascades to image files, so the scanner makes the resulting orphans
// visible without ever deleting them.
package maintenance

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/garage/internal/models"
	"gorm.io/gorm"
)

// Scanner counts stored image files against the references held by build
// records.
type Scanner struct {
	db  *gorm.DB
	dir string
	out io.Writer
}

// NewScanner returns a Scanner over the given database and content directory.
func NewScanner(db *gorm.DB, dir string, out io.Writer) *Scanner {
	return &Scanner{db: db, dir: dir, out: out}
}

// Report summarizes one scan of the content directory.
type Report struct {
	Total      int
	Referenced int
	Orphaned   int
}

// Scan lists the content directory, collects every /uploads/ reference from
// the build table, and counts files no record points at. Read-only: nothing
// is deleted or moved.
func (s *Scanner) Scan() (Report, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Report{}, fmt.Errorf("maintenance: read content dir %s: %w", s.dir, err)
	}

	var refs []string
	if err := s.db.Model(&models.Build{}).
		Where("image LIKE ?", "/uploads/%").
		Pluck("image", &refs).Error; err != nil {
		return Report{}, fmt.Errorf("maintenance: collect image references: %w", err)
	}

	referenced := make(map[string]bool, len(refs))
	for _, ref := range refs {
		referenced[path.Base(ref)] = true
	}

	var report Report
	for _, e := range entries {
		// Dotfiles include in-flight ingestion temp files.
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		report.Total++
		if referenced[e.Name()] {
			report.Referenced++
		} else {
			report.Orphaned++
		}
	}
	return report, nil
}

// Run executes Scan on the given 5-field cron schedule until ctx is
// cancelled, writing a one-line report after each pass.
func (s *Scanner) Run(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		report, err := s.Scan()
		if err != nil {
			fmt.Fprintf(s.out, "orphan scan failed: %v\n", err)
			return
		}
		fmt.Fprintf(s.out, "orphan scan: %d files, %d referenced, %d orphaned\n",
			report.Total, report.Referenced, report.Orphaned)
	})
	if err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", schedule, err)
	}

	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}
