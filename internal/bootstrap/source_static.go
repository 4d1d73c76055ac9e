package bootstrap

import "context"

type StaticSource struct {
	Addrs []string
	Label string
}

func (s StaticSource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "static"
}

func (s StaticSource) Discover(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.Addrs...), nil
}
