package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/entity-profile/internal/profile"
	"github.com/danielpatrickdp/entity-profile/internal/store"
)

var (
	profileDetector string
	profileEntity   string
	profileFacets   string
)

// #region command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the profile of one entity as JSON",
	Long: `Reads the detector and job from the local store, asks every configured peer
for its snapshot of the entity and prints the merged profile.

Example:
  entityprofile profile --detector cpu-hc --entity host-17 --profiles state,init_progress`,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&profileDetector, "detector", "", "detector id")
	profileCmd.Flags().StringVar(&profileEntity, "entity", "", "entity value")
	profileCmd.Flags().StringVar(&profileFacets, "profiles", "state,init_progress,entity_info,models", "comma separated profiles to collect")
	_ = profileCmd.MarkFlagRequired("detector")
	_ = profileCmd.MarkFlagRequired("entity")
}
// #endregion command

// #region run
func runProfile(cmd *cobra.Command, args []string) error {
	facets, err := profile.ParseFacetSet(profileFacets)
	if err != nil {
		return err
	}
	if len(cfg.Peers) == 0 {
		return errors.New("no peers configured; set peers in the config file or ENTITY_PROFILE_PEERS")
	}

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	nodes, closePeers, err := dialPeers(cfg.Peers)
	if err != nil {
		return err
	}
	defer closePeers()

	r, err := newRunner(st, nodes, nil)
	if err != nil {
		return err
	}

	p, err := r.Get(cmd.Context(), profileDetector, profileEntity, facets)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
// #endregion run
