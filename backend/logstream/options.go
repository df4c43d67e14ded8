package logstream

import (
	"net/url"
	"strconv"

	"k8s.io/utils/ptr"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/config"
)

// Target identifies the container whose logs are streamed.
type Target struct {
	Namespace string
	Pod       string
	// Container may be empty for single-container pods.
	Container string
}

// Options controls the log request. Nil pointers take the defaults: follow on
// and a tail of config.LogStreamDefaultTailLines lines.
type Options struct {
	Follow       *bool
	TailLines    *int64
	Previous     bool
	Timestamps   bool
	SinceSeconds *int64
}

// FollowEnabled reports the effective follow flag.
func (o Options) FollowEnabled() bool {
	return o.Follow == nil || *o.Follow
}

// EffectiveTailLines reports the effective tail length.
func (o Options) EffectiveTailLines() int64 {
	if o.TailLines == nil {
		return config.LogStreamDefaultTailLines
	}
	return *o.TailLines
}

// OptionsFromQuery parses follow, tailLines, previous, timestamps and
// sinceSeconds. Only an explicit "false" or "0" disables follow.
func OptionsFromQuery(query url.Values) (Options, error) {
	var opts Options

	switch query.Get("follow") {
	case "false", "0":
		opts.Follow = ptr.To(false)
	}

	if raw := query.Get("tailLines"); raw != "" {
		lines, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || lines < 0 {
			return Options{}, apperrors.NewValidation("tailLines", "%q is not a non-negative integer", raw)
		}
		opts.TailLines = ptr.To(lines)
	}

	if raw := query.Get("sinceSeconds"); raw != "" {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || seconds <= 0 {
			return Options{}, apperrors.NewValidation("sinceSeconds", "%q is not a positive integer", raw)
		}
		opts.SinceSeconds = ptr.To(seconds)
	}

	var err error
	if opts.Previous, err = parseFlag(query, "previous"); err != nil {
		return Options{}, err
	}
	if opts.Timestamps, err = parseFlag(query, "timestamps"); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func parseFlag(query url.Values, name string) (bool, error) {
	raw := query.Get(name)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewValidation(name, "%q is not a boolean", raw)
	}
	return value, nil
}
