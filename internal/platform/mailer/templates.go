package mailer

import (
	"fmt"
	"strings"
)

// SendMagicLink delivers the single-use RSVP modification link. The link
// stops working after 15 minutes or after one successful update.
func SendMagicLink(m Service, toEmail, toName, link string) error {
	subject := "Modify your RSVP"
	text := fmt.Sprintf("Hi %s,\n\nUse the link below to update your RSVP. It expires in 15 minutes and can only be used once.\n\n%s\n\nIf you didn't request this, you can ignore this email.",
		displayName(toName), link)
	html := fmt.Sprintf(`<p>Hi %s,</p>
<p>Use the link below to update your RSVP. It expires in <b>15 minutes</b> and can only be used once.</p>
<p><a href="%s">Update my RSVP</a></p>
<p>If you didn't request this, you can ignore this email.</p>`,
		displayName(toName), link)
	_, err := m.Send(toEmail, toName, subject, text, html)
	return err
}

func SendRSVPConfirmation(m Service, toEmail, guestName string, attending bool, plusOneName string) error {
	subject := "We got your RSVP!"
	var status string
	if attending {
		status = "attending"
		if strings.TrimSpace(plusOneName) != "" {
			status = fmt.Sprintf("attending with %s", plusOneName)
		}
	} else {
		status = "not attending"
	}
	text := fmt.Sprintf("Hi %s,\n\nThanks for responding. We have you down as %s.\n\nNeed to change something? Request a modification link from the wedding site any time.",
		displayName(guestName), status)
	html := fmt.Sprintf(`<p>Hi %s,</p>
<p>Thanks for responding. We have you down as <b>%s</b>.</p>
<p>Need to change something? Request a modification link from the wedding site any time.</p>`,
		displayName(guestName), status)
	_, err := m.Send(toEmail, guestName, subject, text, html)
	return err
}

// SendAdminRSVPNotification tells the couple a response came in or changed.
func SendAdminRSVPNotification(m Service, adminEmail, guestName, guestEmail string, attending bool, guests int, action string) error {
	subject := fmt.Sprintf("RSVP %s: %s", action, guestName)
	attendance := "not attending"
	if attending {
		attendance = fmt.Sprintf("attending (%d)", guests)
	}
	text := fmt.Sprintf("%s <%s> is %s.", guestName, guestEmail, attendance)
	html := fmt.Sprintf(`<p><b>%s</b> &lt;%s&gt; is %s.</p>`, guestName, guestEmail, attendance)
	_, err := m.Send(adminEmail, "", subject, text, html)
	return err
}

func SendGuestbookNotification(m Service, adminEmail, entryName, location, message string) error {
	subject := fmt.Sprintf("New guestbook entry from %s", entryName)
	where := strings.TrimSpace(location)
	if where == "" {
		where = "somewhere"
	}
	text := fmt.Sprintf("%s (from %s) wrote:\n\n%s", entryName, where, message)
	html := fmt.Sprintf(`<p><b>%s</b> (from %s) wrote:</p><blockquote>%s</blockquote>`, entryName, where, message)
	_, err := m.Send(adminEmail, "", subject, text, html)
	return err
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "there"
	}
	return name
}
