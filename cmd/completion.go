package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const recordFlags = "-host -realm -form -user -pass -user-field -pass-field"

const bashCompletion = `_loginstore() {
    local cur prev words cword
    _init_completion || return

    local commands="init add update get ls find rm touch check dupes diff sync token reset wipe wipe-local import passwd compact status keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        add|check|dupes)
            COMPREPLY=($(compgen -W "` + recordFlags + ` -upsert" -- "$cur"))
            ;;
        update)
            COMPREPLY=($(compgen -W "-id ` + recordFlags + `" -- "$cur"))
            ;;
        get|rm|touch|diff)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-show" -- "$cur"))
            else
                # Complete with stored login ids
                local ids
                ids=$(loginstore ls 2>/dev/null | grep -E '^  ' | awk '{print $1}')
                COMPREPLY=($(compgen -W "$ids" -- "$cur"))
            fi
            ;;
        ls)
            COMPREPLY=($(compgen -W "-match" -- "$cur"))
            ;;
        find)
            COMPREPLY=($(compgen -W "-host -domain" -- "$cur"))
            ;;
        wipe|wipe-local)
            COMPREPLY=($(compgen -W "-force" -- "$cur"))
            ;;
        import)
            _filedir json
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _loginstore loginstore
`

const zshCompletion = `#compdef loginstore

_loginstore() {
    local -a commands
    commands=(
        'init:Create a login store'
        'add:Add a login'
        'update:Change a stored login'
        'get:Show one login'
        'ls:List stored logins'
        'find:Find logins by hostname or domain'
        'rm:Remove logins'
        'touch:Record a use of a login'
        'check:Validate a login without saving it'
        'dupes:Show logins for the same site'
        'diff:Compare two logins'
        'sync:Sync with the remote copy'
        'token:Print a sync access token'
        'reset:Forget sync state'
        'wipe:Delete all logins everywhere'
        'wipe-local:Delete all logins on this machine'
        'import:Import logins from JSON'
        'passwd:Change the store key'
        'compact:Compact the store to reclaim disk space'
        'status:Show store status'
        'keyring:Manage the key in the OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    local -a record_flags
    record_flags=(
        '-host[Origin, e.g. https://example.com]:hostname:'
        '-realm[HTTP auth realm]:realm:'
        '-form[Form submit URL]:url:'
        '-user[Username]:username:'
        '-pass[Password]:password:'
        '-user-field[Username form field]:field:'
        '-pass-field[Password form field]:field:'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'loginstore commands' commands
            ;;
        args)
            case "${words[2]}" in
                add)
                    _arguments $record_flags '-upsert[Save over a matching login]'
                    ;;
                check|dupes)
                    _arguments $record_flags
                    ;;
                update)
                    _arguments '-id[Login id]:id:_loginstore_ids' $record_flags
                    ;;
                get)
                    _arguments '-show[Show the password]' '*:login id:_loginstore_ids'
                    ;;
                rm|touch|diff)
                    _arguments '*:login id:_loginstore_ids'
                    ;;
                ls)
                    _arguments '-match[Host glob]:pattern:'
                    ;;
                find)
                    _arguments '-host[Exact hostname]:hostname:' '-domain[Base domain]:domain:'
                    ;;
                wipe|wipe-local)
                    _arguments '-force[Do not ask for confirmation]'
                    ;;
                import)
                    _arguments '*:json file:_files -g "*.json"'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'loginstore commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_loginstore_ids() {
    local -a ids
    ids=(${(f)"$(loginstore ls 2>/dev/null | grep -E '^  ' | awk '{print $1}')"})
    _describe -t ids 'login ids' ids
}

_loginstore "$@"
`

const fishCompletion = `# loginstore fish completions

set -l commands init add update get ls find rm touch check dupes diff sync token reset wipe wipe-local import passwd compact status keyring help completion

complete -c loginstore -f

# Commands
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a login store'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a add -d 'Add a login'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a update -d 'Change a stored login'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a get -d 'Show one login'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List stored logins'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a find -d 'Find logins by host or domain'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove logins'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a touch -d 'Record a use of a login'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a check -d 'Validate a login'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a dupes -d 'Show logins for the same site'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare two logins'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a sync -d 'Sync with the remote copy'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a token -d 'Print a sync access token'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a reset -d 'Forget sync state'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a wipe -d 'Delete all logins everywhere'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a wipe-local -d 'Delete all logins locally'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a import -d 'Import logins from JSON'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change the store key'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact the store'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show store status'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage key in OS keyring'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c loginstore -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# login ids
complete -c loginstore -n "__fish_seen_subcommand_from get rm touch diff" -a "(loginstore ls 2>/dev/null | string match -r '^  \S+' | string trim)"

# flags
complete -c loginstore -n "__fish_seen_subcommand_from get" -o show -d 'Show the password'
complete -c loginstore -n "__fish_seen_subcommand_from ls" -o match -d 'Host glob'
complete -c loginstore -n "__fish_seen_subcommand_from find" -o host -d 'Exact hostname'
complete -c loginstore -n "__fish_seen_subcommand_from find" -o domain -d 'Base domain'
complete -c loginstore -n "__fish_seen_subcommand_from wipe wipe-local" -o force -d 'Do not ask'
complete -c loginstore -n "__fish_seen_subcommand_from import" -F

# keyring subcommands
complete -c loginstore -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c loginstore -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c loginstore -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
