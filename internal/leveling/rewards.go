package leveling

import (
	"log"
)

// GrantRewardsUpTo grants every configured role reward for thresholds at or
// below the given level that the member does not already hold. Each grant is
// independent and best-effort: a permission error on one role does not stop
// the rest.
func (s *Service) GrantRewardsUpTo(userID, guildID string, level int) {
	rewards, err := s.store.GetLevelRewardsUpTo(guildID, level)
	if err != nil {
		log.Printf("[Leveling] Error fetching level rewards for guild %s: %v", guildID, err)
		return
	}

	for _, reward := range rewards {
		hasRole, err := s.gateway.MemberHasRole(guildID, userID, reward.RoleID)
		if err != nil {
			log.Printf("[Leveling] Error checking roles for user %s in guild %s: %v", userID, guildID, err)
			continue
		}
		if hasRole {
			continue
		}
		if err := s.gateway.GrantRole(guildID, userID, reward.RoleID); err != nil {
			log.Printf("[Leveling] Error granting role %s to user %s in guild %s: %v",
				reward.RoleID, userID, guildID, err)
		}
	}
}
