package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// BookingSummary is a JSON-friendly roll-up of the booking families.
type BookingSummary struct {
	ActiveSessions int64                       `json:"activeSessions"`
	Fetches        map[string]map[string]int64 `json:"fetches"`
	Submissions    map[string]int64            `json:"submissions"`
}

// Summarize reads the booking families out of gatherer. Families that are
// missing simply yield zero values.
func Summarize(gatherer prometheus.Gatherer) BookingSummary {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	out := BookingSummary{
		Fetches:     map[string]map[string]int64{},
		Submissions: map[string]int64{},
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return out
	}

	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case fetchTotalName:
			for _, metric := range mf.Metric {
				kind := labelValue(metric, "kind")
				outcome := labelValue(metric, "outcome")
				if out.Fetches[kind] == nil {
					out.Fetches[kind] = map[string]int64{}
				}
				out.Fetches[kind][outcome] += int64(metric.GetCounter().GetValue())
			}
		case submissionsTotalName:
			for _, metric := range mf.Metric {
				out.Submissions[labelValue(metric, "outcome")] += int64(metric.GetCounter().GetValue())
			}
		case activeSessionsName:
			for _, metric := range mf.Metric {
				out.ActiveSessions += int64(metric.GetGauge().GetValue())
			}
		}
	}
	return out
}

func labelValue(metric *dto.Metric, name string) string {
	if metric == nil {
		return ""
	}
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
