package mailgun

import "fmt"

// InvitationBody renders the HTML body of an enrollment invitation around the
// given magic link.
func InvitationBody(magicLink string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<style>
  body { font-family: 'Segoe UI', sans-serif; background-color: #f8f9fa; color: #333; padding: 20px; }
  .container { background: #fff; border-radius: 10px; padding: 30px; max-width: 600px; margin: auto; }
  .btn { display: inline-block; padding: 12px 24px; margin-top: 20px; background-color: #dc3545;
         color: #fff !important; text-decoration: none; border-radius: 30px; font-weight: 600; }
</style>
</head>
<body>
<div class="container">
  <h2>Welcome to Enrollment</h2>
  <p>You're almost there! Click below to complete your enrollment.</p>
  <p style="text-align:center;"><a href="%[1]s" class="btn">Complete Enrollment</a></p>
  <p>If the button above doesn't work, copy and paste the link below into your browser:</p>
  <p><a href="%[1]s">%[1]s</a></p>
</div>
</body>
</html>`, magicLink)
}
