package internaldefs

import (
	"strconv"

	goToken "github.com/MrEthical07/goToken"
)

// Family names one exported metric in both naming schemes. Prometheus names
// use underscores and carry the unit as a suffix; OTel instrument names are
// dotted and carry the unit separately.
type Family struct {
	Prometheus string
	OTel       string
	Help       string
}

var (
	Issued = Family{
		Prometheus: "gotoken_tokens_issued_total",
		OTel:       "gotoken.tokens.issued",
		Help:       "Tokens issued.",
	}
	Verifications = Family{
		Prometheus: "gotoken_token_verifications_total",
		OTel:       "gotoken.token.verifications",
		Help:       "Token verifications by result.",
	}
	VerifyDuration = Family{
		Prometheus: "gotoken_verify_duration_seconds",
		OTel:       "gotoken.verify.duration",
		Help:       "Time spent verifying a token.",
	}
	InsecureSecret = Family{
		Prometheus: "gotoken_insecure_signing_secret",
		OTel:       "gotoken.signing_secret.insecure",
		Help:       "1 while tokens are signed with the development fallback secret.",
	}
)

// ResultLabel is the label (attribute) key distinguishing verification outcomes.
const ResultLabel = "result"

// VerifyResult ties a verification outcome to the counter that records it.
type VerifyResult struct {
	Label   string
	Counter goToken.MetricID
}

// VerifyResults lists every Verify outcome. Their counts sum to the number
// of Verify calls.
var VerifyResults = []VerifyResult{
	{Label: "valid", Counter: goToken.MetricTokenVerified},
	{Label: "expired", Counter: goToken.MetricTokenExpired},
	{Label: "rejected", Counter: goToken.MetricTokenRejected},
}

// LatencyBucketLabels renders the Verify latency bucket bounds as seconds,
// ending with "+Inf" for the overflow bucket.
func LatencyBucketLabels() []string {
	bounds := goToken.VerifyLatencyBounds()
	out := make([]string, 0, len(bounds)+1)
	for _, b := range bounds {
		out = append(out, strconv.FormatFloat(b.Seconds(), 'f', -1, 64))
	}
	return append(out, "+Inf")
}

// Latency is the Verify latency histogram read out of a snapshot.
type Latency struct {
	// Cumulative holds one running total per bucket label.
	Cumulative []uint64
	Count      uint64
	SumSeconds float64
}

// VerifyLatency extracts the Verify latency histogram from snap. A snapshot
// without the histogram yields zero counts for every bucket.
func VerifyLatency(snap goToken.MetricsSnapshot) Latency {
	raw := snap.Histograms[goToken.MetricVerifyLatency]
	cumulative := make([]uint64, len(goToken.VerifyLatencyBounds())+1)
	var running uint64
	for i := range cumulative {
		if i < len(raw) {
			running += raw[i]
		}
		cumulative[i] = running
	}
	return Latency{
		Cumulative: cumulative,
		Count:      running,
		SumSeconds: snap.HistogramSums[goToken.MetricVerifyLatency].Seconds(),
	}
}
