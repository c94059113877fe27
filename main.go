package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/loginstore/cmd"
	"github.com/illarion/loginstore/internal/config"
	"github.com/illarion/loginstore/internal/login"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
		return
	case "completion":
		runCompletion(os.Args[2:])
		return
	}

	cfg := cmd.LoadConfig()
	args := os.Args[2:]

	switch os.Args[1] {
	case "init":
		runInit(cfg, args)
	case "add":
		runAdd(ctx, cfg, args)
	case "update":
		runUpdate(ctx, cfg, args)
	case "get":
		runGet(ctx, cfg, args)
	case "ls":
		runLs(ctx, cfg, args)
	case "find":
		runFind(ctx, cfg, args)
	case "rm":
		runRm(ctx, cfg, args)
	case "touch":
		runTouch(ctx, cfg, args)
	case "check":
		runCheck(ctx, cfg, args)
	case "dupes":
		runDupes(ctx, cfg, args)
	case "diff":
		runDiff(ctx, cfg, args)
	case "sync":
		runSync(ctx, cfg, args)
	case "token":
		runToken(cfg, args)
	case "reset":
		runReset(ctx, cfg, args)
	case "wipe":
		runWipe(ctx, cfg, args)
	case "wipe-local":
		runWipeLocal(ctx, cfg, args)
	case "import":
		runImport(ctx, cfg, args)
	case "passwd":
		runPasswd(ctx, cfg, args)
	case "compact":
		runCompact(cfg, args)
	case "status":
		runStatus(cfg, args)
	case "keyring":
		runKeyring(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// recordFlags registers the login field flags on fs
func recordFlags(fs *flag.FlagSet) *login.Record {
	r := &login.Record{}
	fs.StringVar(&r.Hostname, "host", "", "Origin, e.g. https://example.com")
	fs.StringVar(&r.HTTPRealm, "realm", "", "HTTP auth realm")
	fs.StringVar(&r.FormSubmitURL, "form", "", "Form submit URL ('.' matches any)")
	fs.StringVar(&r.Username, "user", "", "Username")
	fs.StringVar(&r.Password, "pass", "", "Password (prompted when empty)")
	fs.StringVar(&r.UsernameField, "user-field", "", "Username form field name")
	fs.StringVar(&r.PasswordField, "pass-field", "", "Password form field name")
	return r
}

func runInit(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	parse(fs, args)

	cmd.Init(cfg)
}

func runAdd(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	r := recordFlags(fs)
	upsert := fs.Bool("upsert", false, "Save over the matching login instead of failing")
	parse(fs, args)

	cmd.Add(ctx, cfg, *r, *upsert)
}

func runUpdate(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	r := recordFlags(fs)
	fs.StringVar(&r.ID, "id", "", "Id of the login to change")
	parse(fs, args)

	cmd.Update(ctx, cfg, *r)
}

func runGet(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	show := fs.Bool("show", false, "Show the password")
	parse(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: loginstore get [-show] <id>")
		os.Exit(1)
	}
	cmd.Get(ctx, cfg, fs.Arg(0), *show)
}

func runLs(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	match := fs.String("match", "", "Only list logins whose host matches this glob")
	parse(fs, args)

	cmd.Ls(ctx, cfg, *match)
}

func runFind(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("find", flag.ExitOnError)
	host := fs.String("host", "", "Exact hostname")
	domain := fs.String("domain", "", "Base domain, sub-domains included")
	parse(fs, args)

	cmd.Find(ctx, cfg, *host, *domain)
}

func runRm(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	parse(fs, args)

	cmd.Remove(ctx, cfg, fs.Args())
}

func runTouch(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("touch", flag.ExitOnError)
	parse(fs, args)

	cmd.Touch(ctx, cfg, fs.Args())
}

func runCheck(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	r := recordFlags(fs)
	parse(fs, args)

	cmd.Check(ctx, cfg, *r)
}

func runDupes(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("dupes", flag.ExitOnError)
	r := recordFlags(fs)
	parse(fs, args)

	cmd.Dupes(ctx, cfg, *r)
}

func runDiff(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	parse(fs, args)

	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: loginstore diff <id> <id>")
		os.Exit(1)
	}
	cmd.Diff(ctx, cfg, fs.Arg(0), fs.Arg(1))
}

func runSync(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	parse(fs, args)

	cmd.Sync(ctx, cfg)
}

func runToken(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	fs.DurationVar(&cfg.SyncTokenTTL, "ttl", cfg.SyncTokenTTL, "Token lifetime")
	parse(fs, args)

	cmd.Token(cfg)
}

func runReset(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	parse(fs, args)

	cmd.Reset(ctx, cfg)
}

func runWipe(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wipe", flag.ExitOnError)
	force := fs.Bool("force", false, "Do not ask for confirmation")
	parse(fs, args)

	cmd.Wipe(ctx, cfg, *force)
}

func runWipeLocal(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wipe-local", flag.ExitOnError)
	force := fs.Bool("force", false, "Do not ask for confirmation")
	parse(fs, args)

	cmd.WipeLocal(ctx, cfg, *force)
}

func runImport(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	parse(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: loginstore import <file.json|->")
		os.Exit(1)
	}
	cmd.Import(ctx, cfg, fs.Arg(0))
}

func runPasswd(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	parse(fs, args)

	cmd.Passwd(ctx, cfg)
}

func runCompact(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parse(fs, args)

	cmd.Compact(cfg)
}

func runStatus(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parse(fs, args)

	cmd.Status(cfg)
}

func runKeyring(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: loginstore keyring <save|delete|status>")
		os.Exit(1)
	}

	switch args[0] {
	case "save":
		cmd.KeyringSave(cfg)
	case "delete":
		cmd.KeyringDelete(cfg)
	case "status":
		cmd.KeyringStatus(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		os.Exit(1)
	}
}

func runCompletion(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: loginstore completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("loginstore - Encrypted local store for saved logins")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  loginstore <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a login store")
	fmt.Println("  add         Add a login")
	fmt.Println("  update      Change a stored login")
	fmt.Println("  get         Show one login")
	fmt.Println("  ls          List stored logins")
	fmt.Println("  find        Find logins by hostname or domain")
	fmt.Println("  rm          Remove logins")
	fmt.Println("  touch       Record a use of a login")
	fmt.Println("  check       Validate a login without saving it")
	fmt.Println("  dupes       Show logins stored for the same site")
	fmt.Println("  diff        Compare two logins")
	fmt.Println("  sync        Sync with the remote copy")
	fmt.Println("  token       Print a sync access token")
	fmt.Println("  reset       Forget sync state")
	fmt.Println("  wipe        Delete all logins, here and on the remote copy")
	fmt.Println("  wipe-local  Delete all logins on this machine only")
	fmt.Println("  import      Import logins from JSON")
	fmt.Println("  passwd      Change the store key")
	fmt.Println("  compact     Compact the store to reclaim disk space")
	fmt.Println("  status      Show store status")
	fmt.Println("  keyring     Manage the key in the OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  loginstore init")
	fmt.Println("  loginstore add -host https://example.com -form https://example.com -user alice")
	fmt.Println("  loginstore ls -match '*.example.com'")
	fmt.Println("  loginstore sync")
	fmt.Println()
	fmt.Println("Use 'loginstore help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("loginstore init")
		fmt.Println()
		fmt.Println("Creates a login store at $LOGINSTORE_PATH (default .loginstore).")
		fmt.Println("Prompts for the key used for encryption unless LOGINSTORE_KEY is set.")
		fmt.Println("The key is not stored anywhere unless you run 'loginstore keyring save'.")
	case "add", "check", "dupes":
		fmt.Printf("loginstore %s -host <origin> (-realm <realm> | -form <url>) [-user <name>] [-pass <password>]\n", command)
		fmt.Println()
		switch command {
		case "add":
			fmt.Println("Adds a login. Exactly one of -realm and -form must be set.")
			fmt.Println("With -upsert, a login for the same site and username is updated instead.")
		case "check":
			fmt.Println("Validates a login against the store, including the duplicate check,")
			fmt.Println("without saving it.")
		case "dupes":
			fmt.Println("Lists stored logins for the same site and target regardless of")
			fmt.Println("username, with a diff against the given login.")
		}
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -host        Origin, e.g. https://example.com")
		fmt.Println("  -realm       HTTP auth realm")
		fmt.Println("  -form        Form submit URL ('.' matches any)")
		fmt.Println("  -user        Username")
		fmt.Println("  -pass        Password (prompted when empty)")
		fmt.Println("  -user-field  Username form field name")
		fmt.Println("  -pass-field  Password form field name")
	case "update":
		fmt.Println("loginstore update -id <id> [record flags]")
		fmt.Println()
		fmt.Println("Changes a stored login. Flags left empty keep their stored value.")
		fmt.Println("Prints a diff of the change; passwords are masked.")
	case "get":
		fmt.Println("loginstore get [-show] <id>")
		fmt.Println()
		fmt.Println("Shows one login with its usage statistics.")
		fmt.Println("The password is masked unless -show is given.")
	case "ls":
		fmt.Println("loginstore ls [-match <glob>]")
		fmt.Println()
		fmt.Println("Lists stored logins. -match filters by host using glob patterns,")
		fmt.Println("e.g. '*.example.com' or '{github,gitlab}.com'.")
	case "find":
		fmt.Println("loginstore find (-host <origin> | -domain <domain>)")
		fmt.Println()
		fmt.Println("Finds logins for an exact hostname, or for a domain and its sub-domains.")
	case "rm":
		fmt.Println("loginstore rm <id> [id...]")
		fmt.Println()
		fmt.Println("Removes logins. Removals reach the remote copy on the next sync.")
	case "touch":
		fmt.Println("loginstore touch <id> [id...]")
		fmt.Println()
		fmt.Println("Records a use of each login.")
	case "diff":
		fmt.Println("loginstore diff <id> <id>")
		fmt.Println()
		fmt.Println("Compares two stored logins. Passwords are masked.")
	case "sync":
		fmt.Println("loginstore sync")
		fmt.Println()
		fmt.Println("Syncs with the remote copy at LOGINSTORE_SYNC_URL (file:///path).")
		fmt.Println("Requires LOGINSTORE_SYNC_KEY and LOGINSTORE_SYNC_KID. A token is issued")
		fmt.Println("from the sync key unless LOGINSTORE_SYNC_TOKEN is set.")
	case "token":
		fmt.Println("loginstore token [-ttl <duration>]")
		fmt.Println()
		fmt.Println("Prints an access token for LOGINSTORE_SYNC_KEY / LOGINSTORE_SYNC_KID.")
	case "reset":
		fmt.Println("loginstore reset")
		fmt.Println()
		fmt.Println("Forgets sync state. Logins are kept and uploaded again on the next sync.")
	case "wipe":
		fmt.Println("loginstore wipe [-force]")
		fmt.Println()
		fmt.Println("Deletes every login. The deletions reach the remote copy on the next sync.")
	case "wipe-local":
		fmt.Println("loginstore wipe-local [-force]")
		fmt.Println()
		fmt.Println("Deletes every login and all sync state on this machine.")
		fmt.Println("The remote copy is left alone.")
	case "import":
		fmt.Println("loginstore import <file.json|->")
		fmt.Println()
		fmt.Println("Imports a JSON array of logins into an empty store.")
		fmt.Println("Invalid and duplicate logins are skipped and reported.")
	case "passwd":
		fmt.Println("loginstore passwd")
		fmt.Println()
		fmt.Println("Changes the store key and re-encrypts every login.")
	case "compact":
		fmt.Println("loginstore compact")
		fmt.Println()
		fmt.Println("Compacts the store database to reclaim unused disk space.")
		fmt.Println("Does not require the key.")
	case "status":
		fmt.Println("loginstore status")
		fmt.Println()
		fmt.Println("Shows the store path, size, id, keyring and sync configuration.")
		fmt.Println("Does not require the key.")
	case "keyring":
		fmt.Println("loginstore keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Manages the store key in the OS keyring.")
	case "completion":
		fmt.Println("loginstore completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(loginstore completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(loginstore completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  loginstore completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
