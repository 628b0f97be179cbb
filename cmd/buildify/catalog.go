/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"buildify/internal/catalog"
	"buildify/internal/palette"
)

var (
	catalogJSON     bool
	catalogCategory string
	catalogSearch   string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the component catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := palette.New(catalog.Default())
		p.SetCategory(catalogCategory)
		p.SetSearch(catalogSearch)
		items := p.Items()
		out := cmd.OutOrStdout()
		if catalogJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}
		if len(items) == 0 {
			fmt.Fprintln(out, p.EmptyMessage())
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tNAME\tCATEGORY\tSIZE")
		for _, d := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%gx%g\n", d.TypeID, d.DisplayName, d.Category, d.DefaultWidth, d.DefaultHeight)
		}
		return tw.Flush()
	},
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "print JSON")
	catalogCmd.Flags().StringVar(&catalogCategory, "category", catalog.CategoryAll, "filter by category")
	catalogCmd.Flags().StringVar(&catalogSearch, "search", "", "filter by name or description")
}
