package kommo

// ContactInput identifica o contato no Kommo (busca por telefone, depois email).
type ContactInput struct {
	Name  string
	Phone string
	Email string
}

type ContactResponse struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type contactsEnvelope struct {
	Embedded struct {
		Contacts []ContactResponse `json:"contacts"`
	} `json:"_embedded"`
}

type noteParams struct {
	Text string `json:"text"`
}

type noteRequest struct {
	NoteType string     `json:"note_type"`
	Params   noteParams `json:"params"`
}
