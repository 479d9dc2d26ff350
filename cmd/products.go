package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"handoff-client/internal/models"
	"handoff-client/internal/services"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

func newProductsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"p"},
		Short:   "Browse, sell and moderate listings",
	}
	cmd.AddCommand(
		newProductsListCmd(a),
		newProductsShowCmd(a),
		newProductsAddCmd(a),
		newModerateCmd(a, "approve", "Approve a pending listing (admin)"),
		newModerateCmd(a, "reject", "Reject a pending listing (admin)"),
		newProductsDeleteCmd(a),
		newProductsRateCmd(a),
	)
	return cmd
}

func newProductsListCmd(a *app) *cobra.Command {
	var (
		pending  bool
		mine     bool
		search   string
		category string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List approved products, or a filtered view",
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			if err := a.products.FetchProducts(cmd.Context()); err != nil {
				return err
			}

			var list []models.Product
			switch {
			case pending:
				if !a.products.CanModerate() {
					return services.ErrNotPermitted
				}
				list = a.products.Pending()
			case mine:
				if !a.auth.IsAuthenticated() {
					return services.ErrAuthenticationRequired
				}
				list = a.products.Mine()
			default:
				list = a.products.Search(search, models.Category(category))
			}

			printProducts(cmd.OutOrStdout(), list)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "show listings awaiting moderation (admin)")
	cmd.Flags().BoolVar(&mine, "mine", false, "show your own listings in every status")
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by title")
	cmd.Flags().StringVarP(&category, "category", "c", string(services.CategoryAll), "filter by category")
	cmd.MarkFlagsMutuallyExclusive("pending", "mine")
	return cmd
}

func printProducts(out io.Writer, list []models.Product) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No products found")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tCATEGORY\tSTATUS\tRATING")
	for _, p := range list {
		rating := "-"
		if avg, n := p.AverageRating(); n > 0 {
			rating = fmt.Sprintf("%.1f (%d)", avg, n)
		}
		fmt.Fprintf(tw, "%s\t%s\t৳%.0f\t%s\t%s\t%s\n", p.ID, p.Title, p.Price, p.Category, p.Status, rating)
	}
	tw.Flush()
}

func newProductsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a product with its ratings",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			if err := a.products.FetchProducts(cmd.Context()); err != nil {
				return err
			}
			p, ok := a.products.GetProductByID(args[0])
			if !ok {
				return fmt.Errorf("%w: product %s not found", services.ErrServerRejected, args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  ৳%.0f\n", p.Title, p.Price)
			fmt.Fprintf(out, "%s | %s | %s\n", p.Category, p.Location, p.Status)
			fmt.Fprintf(out, "Seller: %s (%s)\n", p.SellerName, p.SellerVarsityID)
			fmt.Fprintf(out, "\n%s\n", p.Description)
			for _, img := range p.Images {
				fmt.Fprintf(out, "Image: %s\n", img)
			}

			avg, n := p.AverageRating()
			if n == 0 {
				fmt.Fprintln(out, "\nNo ratings yet")
				return nil
			}
			fmt.Fprintf(out, "\nRated %.1f by %d buyer(s)\n", avg, n)
			for _, r := range p.Ratings {
				fmt.Fprintf(out, "  %d/5 %s - %s: %s\n", r.Rating, models.RatingLabel(r.Rating), r.BuyerName, r.Comment)
			}
			return nil
		}),
	}
}

func newProductsAddCmd(a *app) *cobra.Command {
	var (
		form   models.ProductForm
		images []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit a listing for moderation",
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			for _, path := range images {
				img, err := readImage(path)
				if err != nil {
					return err
				}
				form.Images = append(form.Images, img)
			}

			if err := a.products.AddProduct(cmd.Context(), form); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Product submitted and awaiting approval")
			return nil
		}),
	}
	cmd.Flags().StringVar(&form.Title, "title", "", "listing title")
	cmd.Flags().StringVar(&form.Description, "description", "", "listing description")
	cmd.Flags().Float64Var(&form.Price, "price", 0, "price in taka")
	cmd.Flags().StringVar((*string)(&form.Category), "category", "", "one of "+categoryList())
	cmd.Flags().StringVar(&form.Location, "location", "", "meeting location")
	cmd.Flags().StringSliceVar(&images, "image", nil, "image file, up to 2")
	return cmd
}

func readImage(path string) (models.ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ImageFile{}, fmt.Errorf("failed to read image: %w", err)
	}
	return models.ImageFile{
		Name:        filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

func categoryList() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func newModerateCmd(a *app, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.products.FetchProducts(ctx); err != nil {
				return err
			}

			moderate, status := a.products.ApproveProduct, models.StatusApproved
			if action == "reject" {
				moderate, status = a.products.RejectProduct, models.StatusRejected
			}
			if err := moderate(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Product %s %s\n", args[0], status)
			return nil
		}),
	}
}

func newProductsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your listings",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			if err := a.products.DeleteProduct(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Product deleted")
			return nil
		}),
	}
}

func newProductsRateCmd(a *app) *cobra.Command {
	var form models.RatingForm
	cmd := &cobra.Command{
		Use:   "rate <id>",
		Short: "Rate a product you bought",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			if err := a.products.AddRating(cmd.Context(), args[0], form); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rated %s (%s)\n", args[0], models.RatingLabel(form.Rating))
			return nil
		}),
	}
	cmd.Flags().IntVar(&form.Rating, "stars", 0, "1 to 5")
	cmd.Flags().StringVar(&form.Comment, "comment", "", "short review")
	return cmd
}

func newContactCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "contact <seller-varsity-id>",
		Short: "Show how to reach a seller on WhatsApp",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStores(func(cmd *cobra.Command, args []string) error {
			contact, err := a.contact.SellerContact(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Phone:    %s\n", contact.PhoneNumber)
			fmt.Fprintf(out, "WhatsApp: %s\n", contact.WhatsAppURL)
			fmt.Fprintf(out, "App link: %s\n", contact.AppURL)
			return nil
		}),
	}
}
