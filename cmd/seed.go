/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/prompthub/apiserver/config"
	"github.com/prompthub/apiserver/internal/db"
	"github.com/prompthub/apiserver/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// defaultCategories are created on first seed. Existing rows with the
// same name are left untouched.
var defaultCategories = []types.Category{
	{Name: "vibe coding", Description: "Coding prompts and snippets", Color: "#10B981", PromptTypeFilter: types.CategoryFilterText},
	{Name: "AI tools", Description: "AI tool prompts and configurations", Color: "#8B5CF6", PromptTypeFilter: types.CategoryFilterBoth},
	{Name: "creative writing", Description: "Creative writing prompts and ideas", Color: "#F59E0B", PromptTypeFilter: types.CategoryFilterText},
	{Name: "image generation", Description: "Image generation prompts", Color: "#EF4444", PromptTypeFilter: types.CategoryFilterImage},
	{Name: "photo analysis", Description: "Photo analysis and description prompts", Color: "#06B6D4", PromptTypeFilter: types.CategoryFilterImage},
}

// seedCmd represents the seed command.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert default categories and the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database failed: %w", err)
		}
		defer func() {
			_ = dbConn.Close()
		}()

		ctx := cmd.Context()
		for _, category := range defaultCategories {
			_, err := dbConn.ExecContext(ctx, `
				INSERT INTO categories (name, description, color, prompt_type_filter)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (name) DO NOTHING`,
				category.Name, category.Description, category.Color, category.PromptTypeFilter,
			)
			if err != nil {
				return fmt.Errorf("seed category %q failed: %w", category.Name, err)
			}
		}

		adminPassword := os.Getenv("ADMIN_PASSWORD")
		if adminPassword == "" {
			adminPassword = "admin123"
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password failed: %w", err)
		}

		_, err = dbConn.ExecContext(ctx, `
			INSERT INTO users (username, email, password_hash, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (username) DO NOTHING`,
			"admin", "admin@example.com", string(hashed), types.RoleAdmin,
		)
		if err != nil {
			return fmt.Errorf("seed admin user failed: %w", err)
		}

		logrus.Info("database seeded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
