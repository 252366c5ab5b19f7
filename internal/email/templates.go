package email

import (
	"fmt"
	"html"
)

type PasswordResetData struct {
	FullName   string
	Email      string
	ResetURL   string
	ValidFor   int // minutes
	ClinicName string
}

func BuildPasswordResetEmail(d PasswordResetData) Message {
	clinic := d.ClinicName
	if clinic == "" {
		clinic = "Fisioterapia RH"
	}
	name := d.FullName
	if name == "" {
		name = "hola"
	}

	subject := fmt.Sprintf("%s: restablecer contraseña", clinic)

	text := fmt.Sprintf(`Hola %s,

Recibimos una solicitud para restablecer tu contraseña.
Abrí este enlace para elegir una nueva (válido por %d minutos):
%s

Si no lo solicitaste, ignorá este correo.

%s`, name, d.ValidFor, d.ResetURL, clinic)

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #0f766e;">Hola %s,</h2>
    <p>Recibimos una solicitud para restablecer tu contraseña.</p>
    <p style="text-align: center; margin: 30px 0;">
        <a href="%s" style="background-color: #0f766e; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Restablecer contraseña</a>
    </p>
    <p>El enlace es válido por %d minutos. Si no lo solicitaste, ignorá este correo.</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">%s</p>
</body>
</html>`, html.EscapeString(name), html.EscapeString(d.ResetURL), d.ValidFor, html.EscapeString(clinic))

	return Message{
		To:       []string{d.Email},
		Subject:  subject,
		TextBody: text,
		HTMLBody: body,
	}
}
