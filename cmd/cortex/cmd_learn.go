package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cortex/internal/learning"
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Learning & Feedback: corrections and detector feedback",
}

var (
	feedbackDetector string
	feedbackAction   string
	feedbackDay      string
)

var learnFeedbackCmd = &cobra.Command{
	Use:   "feedback <correction text>",
	Short: "Record a correction as a typed memory, or a detector feedback action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if feedbackDetector != "" {
			if feedbackAction == "" {
				return fmt.Errorf("--action is required with --detector")
			}
			tracker := learning.NewTracker(cfg.Learning, nil)
			tracker.Record(feedbackDetector, learning.ActionKind(feedbackAction), feedbackDay)
			fixed, dismissed, falsePositives := tracker.Counters(feedbackDetector)
			return printJSON(struct {
				Detector       string `json:"detector"`
				Fixed          int    `json:"fixed"`
				Dismissed      int    `json:"dismissed"`
				FalsePositives int    `json:"false_positives"`
				Disabled       bool   `json:"disabled"`
			}{feedbackDetector, fixed, dismissed, falsePositives, tracker.Disabled(feedbackDetector)})
		}

		if namespace == "" {
			return fmt.Errorf("--namespace is required")
		}

		engine, memStore, err := openMemoryStore()
		if err != nil {
			return err
		}
		defer engine.Close()

		embEngine, err := newEmbeddingEngine()
		if err != nil {
			return err
		}

		store := learning.New(cfg.Learning, memStore, embEngine)
		rec, outcome, err := store.RecordCorrection(context.Background(), namespace, args[0])
		if err != nil {
			return err
		}
		return printJSON(struct {
			Outcome string         `json:"outcome"`
			Record  interface{}    `json:"record"`
		}{string(outcome), rec})
	},
}

func init() {
	learnFeedbackCmd.Flags().StringVar(&feedbackDetector, "detector", "", "Detector id (switches to detector-feedback mode)")
	learnFeedbackCmd.Flags().StringVar(&feedbackAction, "action", "", "fixed|dismissed|false_positive")
	learnFeedbackCmd.Flags().StringVar(&feedbackDay, "day", "", "YYYY-MM-DD date for the feedback snapshot")
}
