package model

import "time"

// DomainRecord is the canonical registry entry for one web identifier.
// A record exists iff registration succeeded for that name; records are
// never deleted.
type DomainRecord struct {
	ObjectType       string    `json:"objectType"`       // Set to the composite key object type (DomainRecord)
	Name             string    `json:"name"`             // Registered name, e.g. "example.btc"
	Owner            string    `json:"owner"`            // Full identity of the current owner
	IdentityMetadata string    `json:"identityMetadata"` // Owner-supplied identity metadata
	IdentityVerified bool      `json:"identityVerified"` // Set by a moderator; cleared on any metadata or ownership change
	ReputationScore  int64     `json:"reputationScore"`  // Weighted sum over all stored reviews for this name
	RegisteredAt     time.Time `json:"registeredAt"`     // Transaction timestamp of the successful registration
	LastUpdatedAt    time.Time `json:"lastUpdatedAt"`    // Transaction timestamp of the last mutation
}

// Review is one reviewer's rating of one domain. The (DomainName, Reviewer)
// pair is unique; resubmission is rejected, never merged.
type Review struct {
	ObjectType     string    `json:"objectType"`     // Set to the composite key object type (Review)
	DomainName     string    `json:"domainName"`     // Reviewed domain
	Reviewer       string    `json:"reviewer"`       // Full identity of the reviewer
	Rating         int32     `json:"rating"`         // In [-5, 5]
	Comment        string    `json:"comment"`        // Optional free text
	ReviewerWeight int64     `json:"reviewerWeight"` // Reviewer reputation snapshot at submission, floored to 1
	ReviewedAt     time.Time `json:"reviewedAt"`     // Transaction timestamp of the submission
}

// Report is one reporter's abuse report against one domain. The
// (DomainName, Reporter) pair is unique. Resolution is one-way.
type Report struct {
	ObjectType string    `json:"objectType"` // Set to the composite key object type (Report)
	DomainName string    `json:"domainName"` // Reported domain
	Reporter   string    `json:"reporter"`   // Full identity of the reporter
	ReasonCode uint32    `json:"reasonCode"` // Reporter-supplied reason code
	Details    string    `json:"details"`    // Free-text details, required
	Resolved   bool      `json:"resolved"`   // One-way false -> true
	Outcome    bool      `json:"outcome"`    // Adjudication outcome recorded at resolution; not acted on further
	ResolvedBy string    `json:"resolvedBy"` // Identity of the resolving moderator/admin
	ReportedAt time.Time `json:"reportedAt"` // Transaction timestamp of the report
	ResolvedAt time.Time `json:"resolvedAt"` // Transaction timestamp of the resolution, zero until resolved
}
