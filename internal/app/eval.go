package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"capresolve/internal/attrs"
	"capresolve/internal/filter"
	"capresolve/internal/types"
	"capresolve/internal/version"
)

// Eval matches a filter against attributes given as "name=value" or
// "name:Type=value". An untyped version attribute is read as a version
// when it parses, as capability builders do.
func (s Service) Eval(ctx context.Context, req EvalRequest) (EvalResult, error) {
	if strings.TrimSpace(req.Filter) == "" {
		return EvalResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("filter is required")
	}
	node, err := filter.Parse(req.Filter)
	if err != nil {
		return EvalResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(err.Error()).
			WithCause(err)
	}
	values, err := parseAttributes(req.Attributes)
	if err != nil {
		return EvalResult{}, err
	}
	result := EvalResult{
		Match:      filter.Eval(node, values),
		Normalized: node.String(),
		Query:      filter.Simplify(node).Query(),
	}
	log.Ctx(ctx).Debug().
		Str("filter", result.Normalized).
		Str("attributes", values.String()).
		Bool("match", result.Match).
		Msg("filter evaluated")
	return result, nil
}

func parseAttributes(pairs []string) (attrs.Map, error) {
	out := attrs.Map{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		name, typ := attrs.SplitTypedKey(key)
		if !ok || name == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("attribute %q must be name=value or name:Type=value", pair))
		}
		if typ == "" && name == types.AttrVersion {
			if v, err := version.Parse(raw); err == nil {
				out[name] = attrs.Version(v)
				continue
			}
		}
		value, err := attrs.ParseTyped(typ, raw)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("attribute %q: %s", name, err.Error())).
				WithCause(err)
		}
		out[name] = value
	}
	return out, nil
}
