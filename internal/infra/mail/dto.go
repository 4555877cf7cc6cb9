package mail

// defaultEmailData alimenta o corpo padrão quando o passo não traz body.
type defaultEmailData struct {
	Name     string
	Template string
	Subject  string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string

	dialer dialer
}
