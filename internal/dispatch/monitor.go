package dispatch

import (
	"sort"

	"notapilot/internal/jobs"
)

const TopRetriesLimit = 5

type TemplateRetries struct {
	TemplateKey   string `json:"template_key"`
	TotalAttempts int    `json:"total_attempts"`
	Jobs          int    `json:"jobs"`
}

// TopRetries groups retried jobs by template and returns the heaviest ones first.
func TopRetries(rows []jobs.Job, n int) []TemplateRetries {
	if n <= 0 {
		n = TopRetriesLimit
	}
	byKey := map[string]*TemplateRetries{}
	for _, j := range rows {
		key := j.TemplateKey
		if key == "" {
			key = "(none)"
		}
		agg, ok := byKey[key]
		if !ok {
			agg = &TemplateRetries{TemplateKey: key}
			byKey[key] = agg
		}
		agg.TotalAttempts += j.Attempts
		agg.Jobs++
	}

	out := make([]TemplateRetries, 0, len(byKey))
	for _, agg := range byKey {
		out = append(out, *agg)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].TotalAttempts != out[b].TotalAttempts {
			return out[a].TotalAttempts > out[b].TotalAttempts
		}
		return out[a].TemplateKey < out[b].TemplateKey
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
