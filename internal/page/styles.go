package page

// stylesheet is injected once into <head> when the widget mounts
const stylesheet = `
.maticstudio-chat-widget {
    position: fixed;
    bottom: 20px;
    right: 20px;
    width: 350px;
    max-height: 500px;
    background: white;
    border-radius: 12px;
    box-shadow: 0 4px 20px rgba(0,0,0,0.15);
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    z-index: 10000;
    border: 1px solid #e9ecef;
}
.maticstudio-chat-widget form { margin: 0; }
.chat-header {
    background: #212529;
    color: white;
    padding: 15px 20px;
    border-radius: 12px 12px 0 0;
    display: flex;
    justify-content: space-between;
    align-items: center;
}
.chat-title h3 { margin: 0; font-size: 16px; font-weight: 500; }
.status-indicator { font-size: 12px; opacity: 0.8; }
.chat-toggle { background: none; border: none; color: white; cursor: pointer; padding: 5px; }
.chat-body { height: 400px; flex-direction: column; }
.chat-messages { flex: 1; padding: 15px; overflow-y: auto; max-height: 250px; }
.message { margin-bottom: 10px; padding: 10px 12px; border-radius: 8px; font-size: 14px; line-height: 1.4; }
.bot-message { background: #f8f9fa; color: #212529; border: 1px solid #e9ecef; }
.user-message { background: #212529; color: white; margin-left: 20px; }
.quick-replies { padding: 10px 15px; border-top: 1px solid #e9ecef; }
.quick-reply-btn {
    display: block;
    width: 100%;
    background: #f8f9fa;
    border: 1px solid #dee2e6;
    border-radius: 8px;
    padding: 8px 12px;
    margin-bottom: 5px;
    font-size: 13px;
    color: #495057;
    cursor: pointer;
    text-align: left;
    transition: all 0.2s;
}
.quick-reply-btn:hover { background: #e9ecef; border-color: #adb5bd; }
.chat-input { padding: 15px; border-top: 1px solid #e9ecef; display: flex; gap: 8px; }
.chat-input form { display: flex; flex: 1; gap: 8px; }
.chat-input input {
    flex: 1;
    padding: 8px 12px;
    border: 1px solid #dee2e6;
    border-radius: 20px;
    font-size: 14px;
    outline: none;
}
.chat-input input:focus { border-color: #6c757d; }
.chat-input button {
    width: 32px;
    height: 32px;
    background: #212529;
    border: none;
    border-radius: 50%;
    color: white;
    cursor: pointer;
    display: flex;
    align-items: center;
    justify-content: center;
}
.chat-input button:hover { background: #495057; }
.chat-input button:disabled { background: #adb5bd; cursor: not-allowed; }
.typing-indicator {
    padding: 10px 12px;
    background: #f8f9fa;
    border: 1px solid #e9ecef;
    border-radius: 8px;
    font-size: 14px;
    color: #6c757d;
    margin-bottom: 10px;
}
@media (max-width: 480px) {
    .maticstudio-chat-widget { width: calc(100vw - 40px); right: 20px; left: 20px; }
}
`

const toggleIcon = `<svg width="20" height="20" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2">` +
	`<path d="M21 15a2 2 0 0 1-2 2H7l-4 4V5a2 2 0 0 1 2-2h14a2 2 0 0 1 2 2z"></path></svg>`

const sendIcon = `<svg width="16" height="16" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2">` +
	`<line x1="22" y1="2" x2="11" y2="13"></line><polygon points="22,2 15,22 11,13 2,9"></polygon></svg>`
