package main

import (
	"github.com/spf13/cobra"

	"github.com/stevemurr/simple-doc-store/query"
	"github.com/stevemurr/simple-doc-store/store"
)

func newCollectionsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withStore(cmd, func(s *store.Store) error {
				names, err := s.GetCollections()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), names)
			})
		},
	}
}

func newFindCommand(opts *rootOptions) *cobra.Command {
	var (
		findOpts store.FindOptions
		proj     query.Projection
		one      bool
	)
	cmd := &cobra.Command{
		Use:   "find <collection> [query]",
		Short: "Print documents matching a JSON query",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := parseExpr(optionalArg(args, 1))
			if err != nil {
				return err
			}
			return opts.withStore(cmd, func(s *store.Store) error {
				if one {
					doc, err := s.FindOne(args[0], query.Where(expr), nil, proj)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), doc)
				}
				docs, err := s.Find(args[0], query.Where(expr), nil, findOpts, proj)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), docs)
			})
		},
	}
	cmd.Flags().BoolVar(&findOpts.Reverse, "reverse", false, "scan from the last document")
	cmd.Flags().IntVar(&findOpts.Max, "max", 0, "maximum number of results (0 = all)")
	cmd.Flags().StringSliceVar(&proj.Select, "select", nil, "only output these fields")
	cmd.Flags().StringSliceVar(&proj.Exclude, "exclude", nil, "omit these fields")
	cmd.Flags().BoolVar(&one, "one", false, "print only the first match (null if none)")
	return cmd
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	var genID bool
	cmd := &cobra.Command{
		Use:   "add <collection> <document>",
		Short: "Append a JSON document to a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseExpr(args[1])
			if err != nil {
				return err
			}
			return opts.withStore(cmd, func(s *store.Store) error {
				added, err := s.Add(args[0], doc, genID)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), added)
			})
		},
	}
	cmd.Flags().BoolVar(&genID, "gen-id", true, "assign an _id when the document has none")
	return cmd
}

func newUpdateCommand(opts *rootOptions) *cobra.Command {
	var (
		one    bool
		upsert bool
		genID  bool
		extra  string
	)
	cmd := &cobra.Command{
		Use:   "update <collection> <query> <update>",
		Short: "Apply a JSON update (object or array of objects) to matching documents",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := parseExpr(args[1])
			if err != nil {
				return err
			}
			u, err := parseUpdater(args[2])
			if err != nil {
				return err
			}
			extraDoc, err := parseExpr(extra)
			if err != nil {
				return err
			}
			return opts.withStore(cmd, func(s *store.Store) error {
				var ok bool
				switch {
				case upsert:
					ok, err = s.UpdateOneOrAdd(args[0], query.Where(expr), u, extraDoc, nil, genID)
				case one:
					ok, err = s.UpdateOne(args[0], query.Where(expr), u, nil)
				default:
					ok, err = s.Update(args[0], query.Where(expr), u, nil)
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]bool{"ok": ok})
			})
		},
	}
	cmd.Flags().BoolVar(&one, "one", false, "update only the first match")
	cmd.Flags().BoolVar(&upsert, "upsert", false, "add a document built from query, update and --extra when nothing matches")
	cmd.Flags().StringVar(&extra, "extra", "", "extra JSON fields for --upsert")
	cmd.Flags().BoolVar(&genID, "gen-id", true, "assign an _id to documents added by --upsert")
	return cmd
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	var one bool
	cmd := &cobra.Command{
		Use:   "remove <collection> <query>",
		Short: "Remove documents matching a JSON query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr, err := parseExpr(args[1])
			if err != nil {
				return err
			}
			return opts.withStore(cmd, func(s *store.Store) error {
				var ok bool
				if one {
					ok, err = s.RemoveOne(args[0], query.Where(expr), nil)
				} else {
					ok, err = s.Remove(args[0], query.Where(expr), nil)
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]bool{"ok": ok})
			})
		},
	}
	cmd.Flags().BoolVar(&one, "one", false, "remove only the first match")
	return cmd
}

func newDropCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <collection>",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, func(s *store.Store) error {
				if err := s.RemoveCollection(args[0]); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]bool{"ok": true})
			})
		},
	}
}
