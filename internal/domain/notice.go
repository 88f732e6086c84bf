package domain

// Notice is the user-facing notification attached to API responses.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"` // "" or "destructive"
}

// NewNotice builds an informational notice.
func NewNotice(title, description string) Notice {
	return Notice{Title: title, Description: description}
}

// FailureNotice builds a destructive notice carrying the backend message.
func FailureNotice(title string, err error) Notice {
	return Notice{Title: title, Description: err.Error(), Variant: "destructive"}
}
