// Package flagx lets several configuration layers read their own flags from
// one command line without tripping over each other's.
package flagx

import (
	"flag"
	"io"
	"strconv"
	"strings"
)

// FilterArgs keeps only the flags named in allowed, together with their
// values. Both "-f value" and "-f=value" forms are recognised; a value is
// assumed to follow only if the next argument is not itself a flag (negative
// numbers count as values). The result is never nil.
func FilterArgs(args []string, allowed []string) []string {
	keep := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		keep[f] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if keep[name] {
				out = append(out, arg)
			}
			continue
		}

		if !keep[arg] {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && isValue(args[i+1]) {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

func isValue(s string) bool {
	if !strings.HasPrefix(s, "-") {
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// StringFlag extracts a single string flag that may be spelled under any of
// names (without the leading dash), e.g. StringFlag(args, "c", "config").
// Missing or malformed flags yield "".
func StringFlag(args []string, names ...string) string {
	dashed := make([]string, 0, len(names))
	for _, n := range names {
		dashed = append(dashed, "-"+n)
	}

	var v string
	fs := flag.NewFlagSet("flagx", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, n := range names {
		fs.StringVar(&v, n, "", "")
	}
	_ = fs.Parse(FilterArgs(args, dashed))
	return v
}
