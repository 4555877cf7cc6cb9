package whatsapp

// SendMessageInput: com TemplateName envia template aprovado; sem ele, texto livre.
type SendMessageInput struct {
	PhoneNumber  string   // Ex: "5511999999999"
	TemplateName string   // Ex: "welcome_whatsapp"
	Parameters   []string // Ex: []string{"João Silva"}
	Text         string
}

type SendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Contacts []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Error *ErrorResponse `json:"error"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}
