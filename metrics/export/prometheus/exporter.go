package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() goToken.MetricsSnapshot
	Insecure() bool
}

// PrometheusExporter renders goToken metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from svc.
func NewPrometheusExporter(svc *goToken.TokenService) *PrometheusExporter {
	return &PrometheusExporter{source: svc}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter over any
// value exposing MetricsSnapshot and Insecure.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves the rendered metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics in Prometheus text exposition format.
//
// Families, in order: issued tokens, verifications by result, the Verify
// latency histogram when latency collection is on, and the insecure secret
// gauge. Render returns "" while metrics are disabled and the secret is
// strong, so a scrape of a quiet service is empty.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	insecure := p.source.Insecure()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && !insecure {
		return ""
	}

	var w textWriter
	w.family(internaldefs.Issued, "counter")
	w.sample(internaldefs.Issued.Prometheus, "", "", snap.Counters[goToken.MetricTokenIssued])

	w.family(internaldefs.Verifications, "counter")
	for _, r := range internaldefs.VerifyResults {
		w.sample(internaldefs.Verifications.Prometheus, internaldefs.ResultLabel, r.Label, snap.Counters[r.Counter])
	}

	if _, ok := snap.Histograms[goToken.MetricVerifyLatency]; ok {
		writeLatency(&w, internaldefs.VerifyLatency(snap))
	}

	w.family(internaldefs.InsecureSecret, "gauge")
	var flag uint64
	if insecure {
		flag = 1
	}
	w.sample(internaldefs.InsecureSecret.Prometheus, "", "", flag)

	return w.String()
}

func writeLatency(w *textWriter, lat internaldefs.Latency) {
	name := internaldefs.VerifyDuration.Prometheus
	w.family(internaldefs.VerifyDuration, "histogram")
	for i, le := range internaldefs.LatencyBucketLabels() {
		w.sample(name+"_bucket", "le", le, lat.Cumulative[i])
	}
	w.WriteString(name)
	w.WriteString("_sum ")
	w.WriteString(strconv.FormatFloat(lat.SumSeconds, 'g', -1, 64))
	w.WriteByte('\n')
	w.sample(name+"_count", "", "", lat.Count)
}

// textWriter accumulates exposition lines. Label values written through it
// are fixed identifiers, so only HELP text needs escaping.
type textWriter struct {
	strings.Builder
}

func (w *textWriter) family(f internaldefs.Family, kind string) {
	w.WriteString("# HELP ")
	w.WriteString(f.Prometheus)
	w.WriteByte(' ')
	w.WriteString(escapeHelp(f.Help))
	w.WriteString("\n# TYPE ")
	w.WriteString(f.Prometheus)
	w.WriteByte(' ')
	w.WriteString(kind)
	w.WriteByte('\n')
}

func (w *textWriter) sample(name, labelKey, labelValue string, value uint64) {
	w.WriteString(name)
	if labelKey != "" {
		w.WriteByte('{')
		w.WriteString(labelKey)
		w.WriteString(`="`)
		w.WriteString(labelValue)
		w.WriteString(`"}`)
	}
	w.WriteByte(' ')
	w.WriteString(strconv.FormatUint(value, 10))
	w.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
