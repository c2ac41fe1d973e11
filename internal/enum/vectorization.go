package enum

type FilterOutcome string

const (
	FilterIndexable     FilterOutcome = "indexable"
	FilterDeniedSender  FilterOutcome = "denied_sender"
	FilterDeniedSubject FilterOutcome = "denied_subject"
	FilterDeniedBody    FilterOutcome = "denied_body"
	FilterNotAllowed    FilterOutcome = "not_in_allow_list"
)

func (t FilterOutcome) String() string {
	return string(t)
}

type VectorizationErrorCategory string

const (
	VectorizationErrorRateLimit       VectorizationErrorCategory = "rate_limit"
	VectorizationErrorAuth            VectorizationErrorCategory = "auth"
	VectorizationErrorContentTooLarge VectorizationErrorCategory = "content_too_large"
	VectorizationErrorNetwork         VectorizationErrorCategory = "network"
	VectorizationErrorUnknown         VectorizationErrorCategory = "unknown"
)

func (t VectorizationErrorCategory) String() string {
	return string(t)
}

type AttachmentFormat string

const (
	AttachmentPDF      AttachmentFormat = "pdf"
	AttachmentDocument AttachmentFormat = "document"
	AttachmentHTML     AttachmentFormat = "html"
	AttachmentText     AttachmentFormat = "text"
)

func (t AttachmentFormat) String() string {
	return string(t)
}

type FilterRuleType string

const (
	FilterRuleAllow FilterRuleType = "allow"
	FilterRuleDeny  FilterRuleType = "deny"
)

func (t FilterRuleType) String() string {
	return string(t)
}

type FilterRuleField string

const (
	FilterRuleFieldSender  FilterRuleField = "sender"
	FilterRuleFieldSubject FilterRuleField = "subject"
	FilterRuleFieldBody    FilterRuleField = "body"
)

func (t FilterRuleField) String() string {
	return string(t)
}
