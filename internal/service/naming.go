package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"mailmask/backend/internal/domain"
)

// 自定义前缀允许的字符集，与地址本地部分的保守子集一致
var prefixPattern = regexp.MustCompile(`^[0-9a-z-_.]+$`)

// sanitizePrefix 规范化用户提供的前缀：小写、去除所有空白。
// 清洗后为空或含非法字符时返回 ErrInvalidPrefix。
func sanitizePrefix(prefix string) (string, error) {
	cleaned := strings.ToLower(prefix)
	cleaned = strings.Join(strings.Fields(cleaned), "")
	if cleaned == "" || !prefixPattern.MatchString(cleaned) {
		return "", domain.ErrInvalidPrefix
	}
	return cleaned, nil
}

// randomLocalPart 按寻址方案生成一个本地部分。
// 单词方案只产出 [a-z-]，UUID 方案产出标准 uuid4 字符串。
func (s *AliasService) randomLocalPart(scheme domain.AliasScheme) string {
	if scheme == domain.AliasSchemeUUID {
		return uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return randomWords(s.random, 2)
}

// randomSuffix 按用户偏好生成自定义别名的随机后缀
func (s *AliasService) randomSuffix(style domain.SuffixStyle) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if style == domain.SuffixStyleWord {
		return randomWord(s.random)
	}
	return randomString(s.random, s.cfg.SuffixLength)
}

// resolveRandomDomain 解析随机别名应使用的域名，按优先级：
// 显式指定 → 用户默认自定义域名（需已验证且归属本人）→
// 用户默认公共域名（付费门槛不满足时静默跳过）→ 全局兜底域名。
func (s *AliasService) resolveRandomDomain(user *domain.User, target string) (string, *string, error) {
	if target != "" {
		return s.resolveTargetDomain(user, target)
	}

	if user.DefaultAliasCustomDomainID != nil {
		cd, err := s.store.GetCustomDomain(*user.DefaultAliasCustomDomainID)
		if err == nil && cd.UserID == user.ID && cd.Verified {
			return cd.Domain, &cd.ID, nil
		}
	}

	if user.DefaultAliasPublicDomainID != nil {
		pd, err := s.store.GetPublicDomain(*user.DefaultAliasPublicDomainID)
		if err == nil && (!pd.PremiumOnly || s.activity.Entitled(user)) {
			return pd.Domain, nil, nil
		}
	}

	return s.cfg.FallbackDomain(), nil, nil
}

// resolveTargetDomain 校验显式指定的目标域名。
// 可以是用户已验证的自定义域名，也可以是权限允许的公共域名。
func (s *AliasService) resolveTargetDomain(user *domain.User, target string) (string, *string, error) {
	target = strings.ToLower(strings.TrimSpace(target))

	if cd, err := s.store.GetCustomDomainByName(target); err == nil {
		if cd.UserID != user.ID || !cd.Verified {
			return "", nil, domain.ErrDomainNotAllowed
		}
		return cd.Domain, &cd.ID, nil
	}

	if pd, err := s.store.GetPublicDomainByName(target); err == nil {
		if pd.PremiumOnly && !s.activity.Entitled(user) {
			return "", nil, domain.ErrDomainNotAllowed
		}
		return pd.Domain, nil, nil
	}

	for _, d := range s.cfg.Domains {
		if d == target {
			return d, nil, nil
		}
	}
	return "", nil, domain.ErrDomainNotAllowed
}

// addressAvailable 三路检查：活跃别名、全局回收站、域名回收站。
// 这里的检查只是提前过滤，最终裁决是存储层创建事务里的约束。
func (s *AliasService) addressAvailable(email string, customDomainID *string) (bool, error) {
	if _, err := s.store.GetAliasByEmail(email); err == nil {
		return false, nil
	} else if !errors.Is(err, domain.ErrAliasNotFound) {
		return false, err
	}

	inTrash, err := s.store.IsInTrash(email)
	if err != nil || inTrash {
		return false, err
	}

	if customDomainID != nil {
		inDomainTrash, err := s.store.IsInDomainTrash(*customDomainID, email)
		if err != nil || inDomainTrash {
			return false, err
		}
	}
	return true, nil
}

// generateRandomAddress 产出一个当前未被占用的随机地址。
// 重试次数受配置约束：后缀空间足够大，耗尽说明出了系统性问题，
// 返回 ErrGenerationExhausted 而不是无限重试。
func (s *AliasService) generateRandomAddress(user *domain.User, scheme domain.AliasScheme, target string) (string, *string, error) {
	domainName, customDomainID, err := s.resolveRandomDomain(user, target)
	if err != nil {
		return "", nil, err
	}

	for attempt := 0; attempt < s.cfg.MaxGenerationAttempts; attempt++ {
		email := s.randomLocalPart(scheme) + "@" + domainName
		ok, err := s.addressAvailable(email, customDomainID)
		if err != nil {
			return "", nil, err
		}
		if ok {
			return email, customDomainID, nil
		}
	}
	return "", nil, domain.ErrGenerationExhausted
}
