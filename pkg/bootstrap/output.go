package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// PrintBootstrapResult writes the created admin to w. A generated password is
// shown here once and never logged.
func PrintBootstrapResult(w io.Writer, result *AdminBootstrapResult) {
	if result == nil || !result.UserCreated {
		return
	}

	border := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\nADMIN BOOTSTRAP COMPLETED\n%s\n", border, border)
	fmt.Fprintf(w, "  Email:     %s\n", result.Email)
	fmt.Fprintf(w, "  User ID:   %s\n", result.UserID)
	fmt.Fprintf(w, "  Role:      admin (email 2FA enabled)\n")

	if result.PasswordFromEnv {
		fmt.Fprintf(w, "  Password:  (configured via ADMIN_PASSWORD environment variable)\n")
		fmt.Fprintln(w, "\n  Remove ADMIN_PASSWORD from the environment after the first login.")
	} else {
		fmt.Fprintf(w, "  Password:  %s\n", result.Password)
		fmt.Fprintln(w, "\n  THIS PASSWORD WILL NOT BE DISPLAYED AGAIN.")
	}
	fmt.Fprintf(w, "%s\n\n", border)
}

// LogBootstrapSummary logs the result without the password
func LogBootstrapSummary(result *AdminBootstrapResult) {
	if result == nil || !result.UserCreated {
		return
	}
	slog.Info("Admin bootstrap summary",
		"user_id", result.UserID,
		"password_from_env", result.PasswordFromEnv,
	)
}
