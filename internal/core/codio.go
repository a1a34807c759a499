package core

// CodioContext is the request-side snapshot of the student's workspace that
// accompanies an /ask-code message.
type CodioContext struct {
	AssignmentData AssignmentData `json:"assignmentData"`
	GuidesPage     GuidesPage     `json:"guidesPage"`
	Files          []CodioFile    `json:"files"`
	Error          ErrorState     `json:"error"`
}

type AssignmentData struct {
	CourseName     string `json:"courseName"`
	AssignmentName string `json:"assignmentName"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
}

type GuidesPage struct {
	Content string `json:"content"`
}

type CodioFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ErrorState carries the text of an active runtime error in the student's
// workspace, if any.
type ErrorState struct {
	ErrorState bool   `json:"errorState"`
	Text       string `json:"text"`
}
