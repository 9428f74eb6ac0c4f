package domain

// ExampleDocument is an approved reply indexed as a positive example.
type ExampleDocument struct {
	Issue            string
	ApprovedResponse string
}

func (d ExampleDocument) Text() string {
	return d.Issue + "\n\nApproved Response:\n" + d.ApprovedResponse
}

// CorrectionDocument is a heavily edited draft indexed as a mistake to avoid.
type CorrectionDocument struct {
	Issue             string
	IncorrectResponse string
	CorrectResponse   string
	EditSummary       string
}

func (d CorrectionDocument) Text() string {
	return d.Issue +
		"\n\nINCORRECT AI Response (Avoid This):\n" + d.IncorrectResponse +
		"\n\nCORRECT Response (Use This Instead):\n" + d.CorrectResponse +
		"\n\nWhat Was Wrong: " + d.EditSummary
}
