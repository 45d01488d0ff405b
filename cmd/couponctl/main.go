// Command couponctl manages restaurant coupons from a terminal, sharing the
// console's token store and session rules.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/fairyhunter13/coupon-console/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(2)
	}

	if err := run(context.Background(), cfg, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}
