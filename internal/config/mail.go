package config

// MailConfig carries SMTP settings for outbound mail.  Mail delivery is a
// side channel: a missing or broken mail setup must never block the auth
// flows, so every field is optional and the mailer logs-and-drops when the
// host is unset.
type MailConfig struct {
	Host     string // SMTP host
	Port     string // SMTP port
	User     string // SMTP auth user
	Password string // SMTP auth password
	From     string // default sender address
	FromName string // default sender display name
}

// LoadMailConfig reads SMTP settings from the environment.
func LoadMailConfig() MailConfig {
	return MailConfig{
		Host:     envStr("MAIL_HOST", ""),
		Port:     envStr("MAIL_PORT", "25"),
		User:     envStr("MAIL_USER", ""),
		Password: envStr("MAIL_PASSWORD", ""),
		From:     envStr("MAIL_DEFAULT_EMAIL", "noreply@example.com"),
		FromName: envStr("MAIL_DEFAULT_NAME", "No Reply"),
	}
}
