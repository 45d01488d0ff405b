package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/fairyhunter13/coupon-console/internal/nav"
)

// cliRouter turns navigation requests into hints on stderr.
type cliRouter struct {
	out      io.Writer
	location string
	target   string
}

var _ nav.Router = (*cliRouter)(nil)

func (r *cliRouter) Location() string {
	return r.location
}

func (r *cliRouter) NavigateTo(path string) {
	r.target = path
	switch {
	case nav.IsLoginView(path):
		fmt.Fprintln(r.out, color.YellowString("Not signed in or session expired. Run `couponctl login` first."))
	case path == nav.UnauthorizedPath:
		fmt.Fprintln(r.out, color.YellowString("Your account does not have access to this command."))
	}
}

// commandLocations maps commands onto the console views they mirror.
var commandLocations = map[string]string{
	"coupons list":   "/admin/coupons",
	"coupons show":   "/admin/coupons",
	"coupons create": "/admin/coupons/new",
	"coupons delete": "/admin/coupons",
	"images list":    "/admin/images",
	"images upload":  "/admin/images",
	"images delete":  "/admin/images",
	"images url":     "/admin/images",
}
