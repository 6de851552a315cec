package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/kidquest/internal/spacedrep"
	"github.com/abhisek/kidquest/internal/store"
	"github.com/abhisek/kidquest/internal/ui/theme"
)

var progressCmd = &cobra.Command{
	Use:   "progress <student>",
	Short: "Show a student's mastery, unlocks and due reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		studentID := args[0]

		s, cfg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		now := time.Now()

		title := studentID
		stu, err := s.StudentRepo().GetStudent(ctx, studentID)
		switch {
		case err == nil && stu.DisplayName != "":
			title = fmt.Sprintf("%s (%s)", stu.DisplayName, studentID)
		case err != nil && !store.IsNotFound(err):
			return fmt.Errorf("get student: %w", err)
		}

		rows, err := s.ProgressRepo().ListProgress(ctx, studentID)
		if err != nil {
			return fmt.Errorf("list progress: %w", err)
		}
		unlocks, err := s.UnlockRepo().ListUnlocks(ctx, studentID)
		if err != nil {
			return fmt.Errorf("list unlocks: %w", err)
		}
		due, err := s.ReviewRepo().DueReviews(ctx, studentID, now)
		if err != nil {
			return fmt.Errorf("due reviews: %w", err)
		}

		fmt.Println(theme.Title.Render("Progress for " + title))
		fmt.Println()

		if len(rows) == 0 {
			fmt.Println(theme.Dim.Render("No answers recorded yet."))
		} else {
			fmt.Printf("%s  %s  %s  %s  %s\n",
				theme.Pad(theme.Header.Render("Skill"), 24),
				theme.Pad(theme.Header.Render("Mastery"), 26),
				theme.Pad(theme.Header.Render("Level"), 6),
				theme.Pad(theme.Header.Render("Answers"), 9),
				theme.Header.Render("Streak (best)"))
			fmt.Println(theme.Separator(84))
			for _, p := range rows {
				level := fmt.Sprintf("%d/%d", p.Level, cfg.Engine.MasteryLevel)
				if p.MasteredAt != nil {
					level = theme.Good.Render(level)
				}
				fmt.Printf("%-24s  %s  %s  %-9s  %d (%d)\n",
					truncate(p.SkillID, 24),
					theme.Bar(p.MasteryPct, 20),
					theme.Pad(level, 6),
					fmt.Sprintf("%d/%d", p.Correct, p.Attempts),
					p.CurrentStreak, p.BestStreak)
			}
		}

		if len(unlocks) > 0 {
			fmt.Println()
			fmt.Println(theme.Header.Render("Unlocked skills"))
			for _, u := range unlocks {
				fmt.Printf("  %s %s %s\n",
					theme.Highlight.Render(u.SkillID),
					theme.Dim.Render("after "+u.UnlockedBy+","),
					theme.Dim.Render(u.UnlockedAt.Local().Format("2006-01-02")))
			}
		}

		fmt.Println()
		if len(due) == 0 {
			fmt.Println(theme.Dim.Render("No reviews due."))
			return nil
		}
		fmt.Println(theme.Header.Render("Reviews due"))
		for _, d := range due {
			label := theme.Highlight.Render("due")
			if d.State.Status(now) == spacedrep.ReviewOverdue {
				label = theme.Bad.Render(fmt.Sprintf("overdue %.0fd", d.State.OverdueDays(now)))
			}
			fmt.Printf("  %-24s  %s  %s\n", truncate(d.SkillID, 24), label,
				theme.Dim.Render(fmt.Sprintf("interval %dd, ease %.2f", d.State.IntervalDays, d.State.EaseFactor)))
		}
		return nil
	},
}
