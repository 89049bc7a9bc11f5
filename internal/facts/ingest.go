package facts

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/tojibot/internal/logging"
	"github.com/ent0n29/tojibot/internal/policy"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = 500 * time.Millisecond

	maxFactLen      = 5000
	existsProbeLen  = 100
	minParagraphLen = 10
	minLineLen      = 50
)

var (
	blankLineRe = regexp.MustCompile(`\n\s*\n`)
	headerRe    = regexp.MustCompile(`(?m)^#[^\n]*$`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// SplitParagraphs breaks a character context document into fact paragraphs.
// Blank-line separated blocks and '#' header sections are both collected,
// deduplicated on their whitespace-collapsed lower-case form, and kept when
// longer than ten characters. Header lines themselves are dropped. When that
// yields at most one paragraph, long single lines are used instead.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	candidates := blankLineRe.Split(text, -1)
	locs := headerRe.FindAllStringIndex(text, -1)
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		// Section body without its header line.
		candidates = append(candidates, text[loc[1]:end])
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		p := stripHeaders(strings.TrimSpace(c))
		key := strings.ToLower(spaceRe.ReplaceAllString(p, " "))
		if len(key) <= minParagraphLen {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	if len(out) > 1 {
		return out
	}

	out = out[:0]
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > minLineLen && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

func stripHeaders(p string) string {
	if !strings.Contains(p, "#") {
		return p
	}
	return strings.TrimSpace(headerRe.ReplaceAllString(p, ""))
}

// LoadReport summarizes one ingestion run.
type LoadReport struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Loader writes paragraphs into a fact store in paced batches.
type Loader struct {
	Store Store
	// Force inserts paragraphs even when an equal fact is already stored.
	Force     bool
	BatchSize int
	Delay     time.Duration
	Logger    *zap.Logger
}

// Load inserts paragraphs, skipping ones already present unless Force is set.
// A failed batch is counted and logged; the run continues with the next one.
func (l *Loader) Load(ctx context.Context, paragraphs []string) (LoadReport, error) {
	logger := logging.OrNop(l.Logger)
	size := l.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	var (
		report  LoadReport
		pending []string
	)
	insert := func() {
		if err := l.Store.Insert(ctx, pending); err != nil {
			report.Failed += len(pending)
			logger.Error("insert fact batch failed",
				zap.String("op", "facts.load"), zap.Int("batch", len(pending)), zap.Error(err))
		} else {
			report.Inserted += len(pending)
			logger.Info("inserted fact batch", zap.Int("batch", len(pending)))
		}
		pending = pending[:0]
	}

	for _, p := range paragraphs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		fact := truncateFact(p)
		if !l.Force {
			exists, err := l.Store.Exists(ctx, probe(fact))
			if err != nil {
				// Treated as absent.
				logger.Warn("fact existence check failed",
					zap.String("op", "facts.load"), zap.Error(err))
			}
			if exists {
				report.Skipped++
				logger.Debug("skipping duplicate fact", zap.String("fact", policy.Preview(fact, 30)))
				continue
			}
		}
		pending = append(pending, fact)
		if len(pending) < size {
			continue
		}
		insert()
		if l.Delay > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(l.Delay):
			}
		}
	}
	if len(pending) > 0 {
		insert()
	}
	return report, nil
}

func truncateFact(p string) string {
	r := []rune(p)
	if len(r) <= maxFactLen {
		return p
	}
	return string(r[:maxFactLen]) + "..."
}

func probe(fact string) string {
	r := []rune(fact)
	if len(r) <= existsProbeLen {
		return fact
	}
	return string(r[:existsProbeLen])
}
