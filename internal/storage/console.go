package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/triarb/pkg/types"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreChance pretty-prints a detected chance to console.
func (c *ConsoleStorage) StoreChance(ctx context.Context, ev types.ChanceEvent) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ARBITRAGE CHANCE DETECTED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Cycle:    %s\n", ev.CycleID)
	fmt.Printf("Time:     %s\n", ev.DetectedAt.Format("2006-01-02 15:04:05.000"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	for i := 0; i < 3; i++ {
		fmt.Printf("  leg %d  %-10s %-4s %s @ size %s\n",
			i, ev.LegSymbols[i], ev.LegSides[i], ev.LegPrices[i].String(), ev.LegSizes[i].String())
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Notional:        %s\n", ev.Notional.String())
	fmt.Printf("  Expected Profit: %s\n", ev.ExpectedProfit.String())
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// StoreOrder pretty-prints an admitted order placement to console.
func (c *ConsoleStorage) StoreOrder(ctx context.Context, ev types.OrderEvent) error {
	fmt.Printf("ORDER DISPATCHED  correlation=%s cycle=%s committed=%s\n",
		ev.CorrelationID, ev.CycleID, ev.CommitAt.Format("2006-01-02 15:04:05.000"))
	for i := 0; i < 3; i++ {
		fmt.Printf("  leg %d  %-10s %-4s %s @ size %s\n",
			i, ev.LegSymbols[i], ev.LegSides[i], ev.LegPrices[i].String(), ev.LegSizes[i].String())
	}
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
