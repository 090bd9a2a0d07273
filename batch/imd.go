package batch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/milkom-maranatha-research-study/holistic-data-processing-service/aggregate"
)

// encodePartials renders partial counts as tab-separated lines, the on-disk
// format of intermediate files between the combine and reduce phases.
func encodePartials(partials []aggregate.Partial) string {
	if len(partials) == 0 {
		return ""
	}
	var b strings.Builder
	// Rough pre-size to reduce reallocations for hot path.
	b.Grow(len(partials) * 24)
	for i := range partials {
		b.WriteString(partials[i].Key)
		b.WriteByte('\t')
		b.WriteString(strconv.Itoa(partials[i].Count))
		b.WriteByte('\n')
	}
	return b.String()
}

// decodePartials parses the intermediate file format back into partial
// counts. The data is engine-written, so a bad line means the stage dir was
// corrupted and the job must fail rather than undercount.
func decodePartials(raw string) ([]aggregate.Partial, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	lines := strings.Split(raw, "\n")
	out := make([]aggregate.Partial, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("corrupt intermediate line %q", line)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("corrupt intermediate count %q: %w", parts[1], err)
		}
		out = append(out, aggregate.Partial{Key: parts[0], Count: count})
	}
	return out, nil
}
