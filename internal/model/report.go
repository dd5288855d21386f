package model

import "time"

// Recommendation is the action produced by the analysis engine.
// Stored verbatim; this subsystem never recomputes it.
type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationSell Recommendation = "SELL"
	RecommendationHold Recommendation = "HOLD"
)

// Valid reports whether r is one of the known recommendation actions.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationBuy, RecommendationSell, RecommendationHold:
		return true
	}
	return false
}

// Representation selects which artifact of a report is requested.
type Representation string

const (
	// RepresentationRendered is the finished paginated document (PDF).
	RepresentationRendered Representation = "rendered"
	// RepresentationSource is the textual source the document was rendered from (LaTeX).
	RepresentationSource Representation = "source"
)

// Valid reports whether p names a known representation.
func (p Representation) Valid() bool {
	return p == RepresentationRendered || p == RepresentationSource
}

// ContentType returns the MIME type served for this representation.
func (p Representation) ContentType() string {
	if p == RepresentationSource {
		return "text/x-latex"
	}
	return "application/pdf"
}

// Ext returns the filename extension used for attachment downloads.
func (p Representation) Ext() string {
	if p == RepresentationSource {
		return "tex"
	}
	return "pdf"
}

// Disposition selects how retrieved bytes are delivered to the consumer.
type Disposition string

const (
	// DispositionInline lets the consumer render the bytes in place (embedded viewer).
	DispositionInline Disposition = "inline"
	// DispositionAttachment forces a download with a derived filename.
	DispositionAttachment Disposition = "attachment"
)

// Valid reports whether d names a known disposition.
func (d Disposition) Valid() bool {
	return d == DispositionInline || d == DispositionAttachment
}

// Report represents a stored investment report artifact and its metadata.
// This is a pure domain model with no database-specific dependencies or tags.
// The byte payloads live in object storage; RenderedKey/SourceKey address them.
type Report struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"owner_id"`
	Ticker         string         `json:"ticker"`
	CompanyName    string         `json:"company_name"`
	OverallScore   float64        `json:"overall_score"`
	Recommendation Recommendation `json:"recommendation"`
	ModelUsed      string         `json:"model_used"`
	RenderedKey    string         `json:"-"`
	SourceKey      string         `json:"-"`
	Size           int64          `json:"size"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

// HasRendered reports whether the rendered artifact exists for this report.
func (r *Report) HasRendered() bool { return r.RenderedKey != "" }

// HasSource reports whether the source artifact exists for this report.
func (r *Report) HasSource() bool { return r.SourceKey != "" }
