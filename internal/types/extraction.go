package types

// ExtractedCourse is what the generative model hands back for one course,
// before the user has reviewed it. Shape mirrors the jsonb blobs on Course.
type ExtractedCourse struct {
  Code        string       `json:"code"`
  Name        string       `json:"name"`
  Description string       `json:"description,omitempty"`
  Term        string       `json:"term,omitempty"`
  Sections    []Section    `json:"sections"`
  Assessments []Assessment `json:"assessments"`
}
