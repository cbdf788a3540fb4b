package types

// EmailListing is one page of emails plus the cursor for the next page
type EmailListing struct {
	Messages      []EmailMessage `json:"messages"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

// EmailMessage is a normalized email returned by provider actions
type EmailMessage struct {
	Id       string   `json:"id"`
	ThreadId string   `json:"thread_id"`
	Subject  string   `json:"subject"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Date     string   `json:"date"`
	Snippet  string   `json:"snippet"`
	Body     string   `json:"body,omitempty"`
	Labels   []string `json:"labels,omitempty"`
	Summary  string   `json:"summary,omitempty"`
}
