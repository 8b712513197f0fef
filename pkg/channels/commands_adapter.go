package channels

import "vancedhelper/pkg/commands"

type commandChannelAdapter struct {
	manager *Manager
}

func newCommandChannelAdapter(manager *Manager) *commandChannelAdapter {
	return &commandChannelAdapter{manager: manager}
}

func (a *commandChannelAdapter) EnabledChannels() []commands.ChannelInfo {
	enabled := a.manager.GetEnabledChannels()
	result := make([]commands.ChannelInfo, 0, len(enabled))
	for _, ch := range enabled {
		result = append(result, ch)
	}
	return result
}
