package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"profiled/internal/catalog"
	"profiled/internal/compat"
)

func runProbe(cmd *cobra.Command, o *options) error {
	res, err := buildProber(o.cfg, &o.log).Probe(cmd.Context())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.Snapshot)
}

func runCheck(cmd *cobra.Command, o *options, id string) error {
	cat, err := catalog.Load(o.cfg.ProfilesPath)
	if err != nil {
		return err
	}
	p, ok := cat.Get(id)
	if !ok {
		return fmt.Errorf("profile not found: %s", id)
	}
	res, err := buildProber(o.cfg, &o.log).Probe(cmd.Context())
	if err != nil {
		return err
	}
	r := compat.Check(p, res.Snapshot)
	if !r.Compatible {
		return fmt.Errorf("%s: incompatible: %s", id, r.Reason)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: compatible (%d GPU(s), %.1fGB free)\n", id, res.Snapshot.GPUCount, res.Snapshot.AvailableVRAMGB)
	return nil
}

func runProfiles(cmd *cobra.Command, o *options) error {
	cat, err := catalog.LoadOrFallback(o.cfg.ProfilesPath)
	if err != nil {
		o.log.Warn().Err(err).Msg("profile document unusable, showing built-in default profile")
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODEL\tTP\tMAX_LEN\tMIN_VRAM_GB\tMIN_GPUS\tDEFAULT")
	for _, p := range cat.List() {
		def := ""
		if p.ID == cat.DefaultID() {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f\t%d\t%s\n", p.ID, p.ModelID, p.TensorParallelSize, p.MaxModelLen,
			p.HardwareRequirements.MinVRAMGB, p.HardwareRequirements.MinGPUs, def)
	}
	return tw.Flush()
}
