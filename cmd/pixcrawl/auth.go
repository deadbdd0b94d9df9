package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pixcrawl/pkg/auth"
	"pixcrawl/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Pixiv credentials",
	Long: `Manage stored Pixiv session cookies securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your cookie or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a Pixiv session cookie securely",
	Long: `Store a Pixiv session cookie in the system keychain or an encrypted
file.

To get the cookie value:
1. Log into Pixiv in your browser
2. Open Developer Tools (F12) > Network
3. Reload the page and select any request to www.pixiv.net
4. Copy the full value of the Cookie request header`,
	Example: `  # Interactive login under the default account name
  pixcrawl auth login

  # Store under a specific name
  pixcrawl auth login alt-account`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

var listAccountsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Run:   runList,
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	Run:   runRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(listAccountsCmd)
	authCmd.AddCommand(removeCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	name := "default"
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	reader := bufio.NewReader(os.Stdin)

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("Account %q already exists. Update credentials? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("Cookie value (hidden as you type): ")
	cookie, err := readSecret()
	if err != nil {
		ui.PrintError("Failed to read cookie", err.Error())
		os.Exit(1)
	}
	fmt.Println()

	if !strings.Contains(cookie, "PHPSESSID=") {
		ui.PrintWarning("Cookie does not contain PHPSESSID; downloads may be rejected")
	}

	fmt.Print("Browser user agent (optional, Enter for default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	account := &auth.Account{
		Name:      name,
		Cookie:    cookie,
		UserAgent: userAgent,
	}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Credentials stored for %q", name))
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		fmt.Println("No stored accounts. Run 'pixcrawl auth login' to add one.")
		return
	}

	for _, account := range accounts {
		ui.PrintInfo(account.Name, fmt.Sprintf("cookie %s, updated %s",
			maskCookie(account.Cookie),
			account.LastModified.Format("2006-01-02")))
	}
}

func runRemove(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	name := strings.TrimSpace(args[0])
	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Removed account %q", name))
}

// readSecret reads a line without echoing it
func readSecret() (string, error) {
	data, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// maskCookie keeps just enough of the cookie to recognize it
func maskCookie(cookie string) string {
	if len(cookie) <= 12 {
		return "***"
	}
	return cookie[:8] + "..." + cookie[len(cookie)-4:]
}
