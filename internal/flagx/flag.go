// Package flagx holds helpers for layered command-line parsing, where several
// flag sets each pick the flags they own out of the same argument list.
package flagx

import (
	"flag"
	"io"
	"strconv"
	"strings"
)

// FilterArgs keeps only the allowed flags (and their values) from args.
//
// Supported forms are "-c conf.json" and "-config=conf.json". A value is taken
// from the next argument only when it does not itself start with '-'.
//
// Flags named in boolFlags never consume a free-form value. A following
// "true" or "false" (any form strconv.ParseBool accepts) is folded into
// "-h=false", since package flag would otherwise stop at it.
func FilterArgs(args []string, allowedFlags []string, boolFlags ...string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}
	bools := make(map[string]struct{}, len(boolFlags))
	for _, f := range boolFlags {
		bools[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			if _, isBool := bools[arg]; isBool {
				if i+1 < len(args) {
					if _, err := strconv.ParseBool(args[i+1]); err == nil {
						filtered = append(filtered, arg+"="+args[i+1])
						i++
						continue
					}
				}
				filtered = append(filtered, arg)
				continue
			}

			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigFileFlag extracts the config file path given via -c or -config.
// Other arguments are ignored. It returns "" when neither flag is present.
func ConfigFileFlag(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}
