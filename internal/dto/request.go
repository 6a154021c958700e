package dto

type EndMeetingRequest struct {
	RecordingURL string `json:"recording_url"`
}

type EnterWaitingRequest struct {
	VisitorName  string `json:"visitor_name"`
	VisitorEmail string `json:"visitor_email"`
}

type PostMessageRequest struct {
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

// AttachFileRequest links an already hosted file instead of uploading bytes.
type AttachFileRequest struct {
	UploadedBy string `json:"uploaded_by"`
	URL        string `json:"url"`
}

type SignatureRequest struct {
	SessionNumber string `json:"session_number"`
	Role          *int   `json:"role"`
	// Email identifies a visitor's waiting entry; operators leave it empty.
	Email string `json:"email,omitempty"`
}
