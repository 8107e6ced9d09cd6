package web

import (
	_ "embed"
)

//go:embed assets/login.html
var loginPage []byte

const (
	loginSuccessPage = `<html>
<head><meta http-equiv="refresh" content="0;url=/"></head>
<body><p>Login successful! Redirecting...</p></body>
</html>
`

	logoutPage = `<html>
<head><meta http-equiv="refresh" content="2;url=/login"></head>
<body><p>Logged out successfully. Redirecting to login page...</p></body>
</html>
`

	unauthorizedPage = "<html><body><h1>401 Unauthorized</h1><p>Please <a href='/login'>login</a></p></body></html>"
)

// Plain-text reply bodies.
const (
	msgBadRequest          = "Bad Request"
	msgInvalidCredentials  = "Invalid credentials"
	msgMissingFileParam    = "Missing file parameter"
	msgMissingFilename     = "Missing filename param"
	msgFileNotFound        = "File not found"
	msgUnableToOpen        = "Unable to open file"
	msgCreateFailed        = "Error creating file"
	msgUploaded            = "File uploaded"
	msgTrashed             = "Moved to trash"
	msgTrashFailed         = "Error moving file"
	msgRestored            = "Restored"
	msgRestoreFailed       = "Error restoring"
	msgDeleted             = "Permanently deleted"
	msgDeleteFailed        = "Error deleting file"
	msgForbidden           = "Forbidden"
	msgNotFound            = "Not Found"
	msgUnknownPOST         = "Unknown POST endpoint"
	msgUnsupportedMethod   = "Unsupported request method"
	msgEmptyTrashTemplate  = "Deleted %d files from trash"
	msgInternalServerError = "Internal Server Error"
)
