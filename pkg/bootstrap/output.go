package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// PrintBootstrapResult displays the bootstrap results for an operator
func PrintBootstrapResult(w io.Writer, result *AdminBootstrapResult) {
	if result == nil || !result.Created {
		return
	}

	border := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\nADMIN BOOTSTRAP COMPLETED\n%s\n", border, border)

	fmt.Fprintln(w, "\nAdmin Account:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "  Username:  %s\n", result.Username)
	fmt.Fprintf(w, "  Email:     %s\n", result.Email)
	fmt.Fprintf(w, "  ID:        %s\n", result.AccountID)
	fmt.Fprintf(w, "  Role:      %s\n", result.Role)

	// Only display password if it was auto-generated
	if !result.PasswordFromEnv {
		fmt.Fprintf(w, "  Password:  %s\n", result.Password)
	} else {
		fmt.Fprintln(w, "  Password:  (configured via ADMIN_PASSWORD environment variable)")
	}

	fmt.Fprintln(w, "\nSECURITY REMINDERS:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	if result.PasswordFromEnv {
		fmt.Fprintln(w, "  - Remove ADMIN_PASSWORD from the environment after first login")
	} else {
		fmt.Fprintln(w, "  - THIS PASSWORD WILL NOT BE DISPLAYED AGAIN - SAVE IT NOW!")
	}
	fmt.Fprintln(w, "  - Change the password after logging in for the first time")
	fmt.Fprintf(w, "%s\n\n", border)
}

// LogBootstrapSummary logs a summary without the password
func LogBootstrapSummary(result *AdminBootstrapResult) {
	if result == nil {
		return
	}
	slog.Info("Admin bootstrap summary",
		"created", result.Created,
		"admin_username", result.Username,
		"admin_email", result.Email,
		"account", result.AccountID,
		"role", result.Role,
		"password_from_env", result.PasswordFromEnv,
	)
}
