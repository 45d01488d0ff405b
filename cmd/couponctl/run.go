package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/fairyhunter13/coupon-console/internal/bootstrap"
	"github.com/fairyhunter13/coupon-console/internal/config"
	"github.com/fairyhunter13/coupon-console/internal/guard"
	"github.com/fairyhunter13/coupon-console/internal/logging"
	"github.com/fairyhunter13/coupon-console/internal/model"
)

var errAccessDenied = errors.New("access denied")

// dateLayouts are accepted for --from and --to.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD, YYYY-MM-DDTHH:MM or RFC 3339", s)
}

func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	cli := kingpin.New("couponctl", "Manage restaurant coupons from the command line.")
	cli.UsageWriter(stdout)
	cli.ErrorWriter(stderr)
	cli.Terminate(nil)
	debug := cli.Flag("debug", "Write debug logs to stderr.").Bool()

	login := cli.Command("login", "Sign in and store the session token.")
	loginUser := login.Flag("username", "Username.").Short('u').Required().String()
	loginPass := login.Flag("password", "Password.").Short('p').Envar("COUPONCTL_PASSWORD").Required().String()

	logout := cli.Command("logout", "Forget the stored session token.")
	whoami := cli.Command("whoami", "Show the signed-in user.")

	coupons := cli.Command("coupons", "Manage coupons.")
	couponList := coupons.Command("list", "List coupons.")
	listPage := couponList.Flag("page", "Zero-based page number.").Default("0").Int()
	listSize := couponList.Flag("size", "Page size.").Default("10").Int()
	listSort := couponList.Flag("sort-by", "Sort field.").Default("id").String()
	listDir := couponList.Flag("direction", "Sort direction.").Default("asc").Enum("asc", "desc")

	couponShow := coupons.Command("show", "Show one coupon.")
	showID := couponShow.Arg("id", "Coupon id.").Required().Int64()

	couponCreate := coupons.Command("create", "Create a coupon.")
	createName := couponCreate.Flag("name", "Coupon name.").Required().String()
	createDiscount := couponCreate.Flag("discount", "Discount percentage, 0-100.").Required().Float64()
	createFrom := couponCreate.Flag("from", "Start of validity.").Required().String()
	createTo := couponCreate.Flag("to", "End of validity.").Required().String()
	createDesc := couponCreate.Flag("description", "Description.").String()
	createTerms := couponCreate.Flag("terms", "Terms and conditions.").String()
	createImage := couponCreate.Flag("image", "Image id.").Int64()
	createInactive := couponCreate.Flag("inactive", "Create the coupon disabled.").Bool()

	couponDelete := coupons.Command("delete", "Delete a coupon.")
	deleteCouponID := couponDelete.Arg("id", "Coupon id.").Required().Int64()

	images := cli.Command("images", "Manage images.")
	imageList := images.Command("list", "List images.")
	imageUpload := images.Command("upload", "Upload an image.")
	uploadPath := imageUpload.Arg("file", "Image file.").Required().ExistingFile()
	uploadDesc := imageUpload.Flag("description", "Description.").String()
	imageDelete := images.Command("delete", "Delete an image.")
	deleteImageID := imageDelete.Arg("id", "Image id.").Required().Int64()
	imageURL := images.Command("url", "Print the direct content URL of an image.")
	urlID := imageURL.Arg("id", "Image id.").Required().Int64()

	cmd, err := cli.Parse(args)
	if err != nil {
		return err
	}
	if cmd == "" {
		// --help or --version already printed.
		return nil
	}

	logCfg := cfg.Log
	logCfg.Pretty = true
	logCfg.Level = "warn"
	if *debug {
		logCfg.Level = "debug"
	}
	logging.Setup(logCfg, stderr)

	backend, err := bootstrap.OpenTokenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	router := &cliRouter{out: stderr, location: commandLocations[cmd]}
	core, err := bootstrap.NewCore(cfg, backend.Store, router)
	if err != nil {
		return err
	}
	core.Sessions.Init(ctx)

	switch cmd {
	case login.FullCommand():
		if err := core.Sessions.Login(ctx, model.LoginRequest{Username: *loginUser, Password: *loginPass}); err != nil {
			return err
		}
		st := core.Sessions.State()
		fmt.Fprintln(stdout, color.GreenString("Signed in as %s (%s)", st.Username, st.Role))
		return nil

	case logout.FullCommand():
		core.Sessions.Logout(ctx)
		fmt.Fprintln(stdout, "Signed out")
		return nil

	case whoami.FullCommand():
		st := core.Sessions.State()
		if !st.Authenticated {
			fmt.Fprintln(stdout, "Not signed in")
			return nil
		}
		fmt.Fprintf(stdout, "%s (%s)\n", st.Username, st.Role)
		return nil
	}

	// Everything below mirrors the admin views.
	if d := core.Guard.Check(router, model.RoleAdmin); d.Outcome != guard.Allow {
		return errAccessDenied
	}

	switch cmd {
	case couponList.FullCommand():
		page, err := core.Coupons.List(ctx, model.CouponListParams{
			Page: *listPage, Size: *listSize, SortBy: *listSort, Direction: *listDir,
		})
		if err != nil {
			return err
		}
		printCoupons(stdout, page)

	case couponShow.FullCommand():
		c, err := core.Coupons.Get(ctx, *showID)
		if err != nil {
			return err
		}
		printCoupon(stdout, c)

	case couponCreate.FullCommand():
		from, err := parseDate(*createFrom)
		if err != nil {
			return err
		}
		to, err := parseDate(*createTo)
		if err != nil {
			return err
		}
		active := !*createInactive
		req := model.CouponCreate{
			Name:               *createName,
			Description:        *createDesc,
			DiscountValue:      *createDiscount,
			ValidFrom:          from,
			ValidTo:            to,
			TermsAndConditions: *createTerms,
			IsActive:           &active,
		}
		if *createImage > 0 {
			req.ImageID = createImage
		}
		c, err := core.Coupons.Create(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, color.GreenString("Created coupon #%d %s", c.ID, c.Name))

	case couponDelete.FullCommand():
		if err := core.Coupons.Delete(ctx, *deleteCouponID); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deleted coupon #%d\n", *deleteCouponID)

	case imageList.FullCommand():
		list, err := core.Images.List(ctx)
		if err != nil {
			return err
		}
		printImages(stdout, list)

	case imageUpload.FullCommand():
		f, err := os.Open(*uploadPath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		img, err := core.Images.Upload(ctx, filepath.Base(*uploadPath), f, *uploadDesc)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, color.GreenString("Uploaded image #%d", img.ID))
		fmt.Fprintln(stdout, img.URL)

	case imageDelete.FullCommand():
		if err := core.Images.Delete(ctx, *deleteImageID); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deleted image #%d\n", *deleteImageID)

	case imageURL.FullCommand():
		fmt.Fprintln(stdout, core.Images.ContentURL(*urlID))
	}
	return nil
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

func printCoupons(out io.Writer, page *model.Page[model.CouponSummary]) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Name", "Discount", "Image"})
	for _, c := range page.Content {
		image := "-"
		if c.ImageID != nil {
			image = "#" + strconv.FormatInt(*c.ImageID, 10)
		}
		t.AppendRow(table.Row{c.ID, c.Name, humanize.Ftoa(c.DiscountValue) + "%", image})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("page %d of %d", page.Number+1, max(page.TotalPages, 1)), humanize.Comma(page.TotalElements) + " total", ""})
	t.Render()
}

func printCoupon(out io.Writer, c *model.CouponDetail) {
	status := "active"
	if !c.IsActive {
		status = "inactive"
	}
	image := "-"
	if c.ImageID != nil {
		image = "#" + strconv.FormatInt(*c.ImageID, 10)
	}

	t := newTable(out)
	t.AppendRows([]table.Row{
		{"ID", c.ID},
		{"Name", c.Name},
		{"Discount", humanize.Ftoa(c.DiscountValue) + "%"},
		{"Valid from", c.ValidFrom},
		{"Valid to", c.ValidTo},
		{"Status", status},
		{"Image", image},
		{"Description", c.Description},
		{"Terms", c.TermsAndConditions},
	})
	t.Render()
}

func printImages(out io.Writer, images []model.ImageSummary) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "File", "Type", "Size", "Description"})
	for _, img := range images {
		t.AppendRow(table.Row{img.ID, img.FileName, img.FileType, humanize.IBytes(uint64(max(img.FileSize, 0))), img.Description})
	}
	t.Render()
}
