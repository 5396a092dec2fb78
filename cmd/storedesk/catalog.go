package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"storedesk/internal/forms"
	"storedesk/internal/models"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func (c *cli) categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "List and edit your store's categories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.app.store(cmd.Context())
			if err != nil {
				return err
			}
			list, err := c.app.catalog.Categories(cmd.Context(), store.ID)
			if err != nil {
				return err
			}
			return c.app.print(list, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, cat := range list {
					fmt.Fprintf(w, "%d\t%s\t%s\n", cat.ID, cat.Name, cat.Description)
				}
			})
		},
	})

	var name, description string
	save := func(cmd *cobra.Command, args []string) error {
		store, err := c.app.store(cmd.Context())
		if err != nil {
			return err
		}
		in := forms.CategoryInput{StoreID: store.ID, Name: name, Description: description}
		var cat *models.Category
		if len(args) == 1 {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if cat, err = c.app.catalog.UpdateCategory(cmd.Context(), id, in); err != nil {
				return err
			}
		} else if cat, err = c.app.catalog.CreateCategory(cmd.Context(), in); err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "Saved category %d %q\n", cat.ID, cat.Name)
		return nil
	}

	create := &cobra.Command{Use: "create", Short: "Add a category", Args: cobra.NoArgs, RunE: save}
	update := &cobra.Command{Use: "update <id>", Short: "Rename or describe a category", Args: cobra.ExactArgs(1), RunE: save}
	for _, sub := range []*cobra.Command{create, update} {
		sub.Flags().StringVar(&name, "name", "", "category name")
		sub.Flags().StringVar(&description, "description", "", "category description")
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := c.app.store(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.app.catalog.DeleteCategory(cmd.Context(), store.ID, id); err != nil {
				return err
			}
			fmt.Fprintf(c.app.out, "Deleted category %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(create, update, del)
	return cmd
}

type productFlags struct {
	category    int64
	name        string
	description string
	price       float64
	salePrice   float64
	image       string
	attribute   string
	values      []string
}

func (pf *productFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int64Var(&pf.category, "category", 0, "category id")
	f.StringVar(&pf.name, "name", "", "product name")
	f.StringVar(&pf.description, "description", "", "product description")
	f.Float64Var(&pf.price, "price", 0, "base price")
	f.Float64Var(&pf.salePrice, "sale-price", 0, "discounted price")
	f.StringVar(&pf.image, "image", "", "path of an image to upload")
	f.StringVar(&pf.attribute, "attribute", "", "attribute the values belong to, e.g. size")
	f.StringArrayVar(&pf.values, "value", nil, "attribute value as name=price, repeatable")
}

func (pf *productFlags) input(cmd *cobra.Command, storeID int64) forms.ProductInput {
	in := forms.ProductInput{
		StoreID:     storeID,
		CategoryID:  pf.category,
		Name:        pf.name,
		Description: pf.description,
		Price:       pf.price,
		AttributeID: pf.attribute,
		ImagePath:   pf.image,
	}
	if cmd.Flags().Changed("sale-price") {
		sale := pf.salePrice
		in.SalePrice = &sale
	}
	for _, v := range pf.values {
		value, price, _ := strings.Cut(v, "=")
		in.Values = append(in.Values, forms.AttributeValueInput{AttributeID: pf.attribute, Value: value, Price: price})
	}
	return in
}

func (c *cli) productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "List and edit your store's products",
	}

	var category int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.app.store(cmd.Context())
			if err != nil {
				return err
			}
			var products []models.Product
			if category > 0 {
				products, err = c.app.catalog.ProductsIn(cmd.Context(), store.ID, category)
			} else {
				products, err = c.app.catalog.Products(cmd.Context(), store.ID)
			}
			if err != nil {
				return err
			}
			return c.app.print(products, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSALE\tVALUES")
				for _, p := range products {
					sale := "-"
					if p.SalePrice != nil {
						sale = p.SalePrice.String()
					}
					fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%d\n", p.ID, p.Name, p.CategoryID, p.Price, sale, len(p.Values))
				}
			})
		},
	}
	list.Flags().Int64Var(&category, "category", 0, "only this category")

	var pf productFlags
	save := func(cmd *cobra.Command, args []string) error {
		store, err := c.app.store(cmd.Context())
		if err != nil {
			return err
		}
		in := pf.input(cmd, store.ID)
		var p *models.Product
		if len(args) == 1 {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err = c.app.catalog.UpdateProduct(cmd.Context(), id, in)
			if err != nil {
				return err
			}
		} else if p, err = c.app.catalog.CreateProduct(cmd.Context(), in); err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "Saved product %d %q\n", p.ID, p.Name)
		return nil
	}
	create := &cobra.Command{Use: "create", Short: "Add a product", Args: cobra.NoArgs, RunE: save}
	update := &cobra.Command{Use: "update <id>", Short: "Replace a product's details", Args: cobra.ExactArgs(1), RunE: save}
	pf.bind(create)
	pf.bind(update)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := c.app.store(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.app.catalog.DeleteProduct(cmd.Context(), store.ID, id); err != nil {
				return err
			}
			fmt.Fprintf(c.app.out, "Deleted product %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}
