package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicnetworks/hgclient/src/common"
	"github.com/mosaicnetworks/hgclient/src/entity"
	"github.com/spf13/cobra"
)

// NewPingCmd returns the command that pings the nodes of the network
func NewPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping [account...]",
		Short: "Send a free query to nodes and report their latency",
		Long: `Send a free query to the given node accounts, or to every node of the
network when none is given.`,
		RunE: ping,
	}
}

func ping(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Close()

	var nodes []entity.ID
	for _, a := range args {
		id, err := entity.ParseID(a)
		if err != nil {
			return err
		}
		nodes = append(nodes, id)
	}
	if len(nodes) == 0 {
		nodes = c.Network().NodeAccountIDs(0)
	}

	var (
		failed    int
		latencies []time.Duration
	)
	for _, id := range nodes {
		start := time.Now()
		err := c.Ping(context.Background(), id)
		if err != nil {
			failed++
			fmt.Printf("%-12s FAIL %v\n", id, err)
			continue
		}
		d := time.Since(start)
		latencies = append(latencies, d)
		fmt.Printf("%-12s OK   %s\n", id, d.Round(time.Millisecond))
	}

	if len(latencies) > 0 {
		fmt.Printf("median latency %s\n", common.MedianDuration(latencies).Round(time.Millisecond))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d nodes failed", failed, len(nodes))
	}

	return nil
}
