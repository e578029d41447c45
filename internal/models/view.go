// internal/models/view.go
package models

// Theme 界面主题
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggled 返回相反的主题
func (t Theme) Toggled() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// View 工作室模块
type View string

const (
	ViewDashboard             View = "dashboard"
	ViewCloudAssetHub         View = "cloudAssetHub"
	ViewStudio2D              View = "studio2D"
	ViewStudio3D              View = "studio3D"
	ViewCharacterEngine       View = "characterEngine"
	ViewGenerativeVideo       View = "generativeVideo"
	ViewVFXCompositing        View = "vfxCompositing"
	ViewAnimationEngine       View = "animationEngine"
	ViewDistributionAnalytics View = "distributionAnalytics"
)

// AllViews 侧边栏顺序
var AllViews = []View{
	ViewDashboard,
	ViewCloudAssetHub,
	ViewStudio2D,
	ViewStudio3D,
	ViewCharacterEngine,
	ViewGenerativeVideo,
	ViewVFXCompositing,
	ViewAnimationEngine,
	ViewDistributionAnalytics,
}

// IsValid 检查是否为已知模块
func (v View) IsValid() bool {
	for _, known := range AllViews {
		if v == known {
			return true
		}
	}
	return false
}
