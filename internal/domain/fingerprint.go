package domain

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint identifies an incident across runs of the same execution day,
// so the ledger can tell new incidents from already reported ones.
func (a Anomaly) Fingerprint(execDate string) string {
	parts := []string{
		execDate,
		a.Source,
		string(a.Type),
		a.Record.Filename,
		a.Record.CleanedFilename,
		a.Record.Batch,
		a.Record.UploadedAt,
		a.Record.Entity,
	}

	digest := xxhash.New()
	_, _ = digest.WriteString(strings.Join(parts, "\x1f"))
	return strconv.FormatUint(digest.Sum64(), 16)
}
