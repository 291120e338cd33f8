package mapper

import (
	"context"

	"github.com/nDmitry/imagefeed/internal/loader"
)

type stubClient struct {
	resp *loader.Response
}

func (c *stubClient) Get(_ context.Context, _ string) (*loader.Response, error) {
	return c.resp, nil
}
